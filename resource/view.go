package resource

import (
	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
)

// View is a borrowed handle whose native object is owned by the engine and
// lives exactly as long as the parent resource. Views cannot be released.
type View struct {
	parent *Resource
	handle native.Handle
	kind   native.Kind
}

// NewView borrows h from parent.
func NewView(parent *Resource, kind native.Kind, h native.Handle) (View, error) {
	if err := parent.Check(); err != nil {
		return View{}, err
	}
	if !h.Valid() {
		return View{}, errors.ConstructionFailed(kind, native.ErrUnknown)
	}
	return View{parent: parent, handle: h, kind: kind}, nil
}

// Kind returns the kind of the borrowed object.
func (v View) Kind() native.Kind { return v.kind }

// Parent returns the owning resource.
func (v View) Parent() *Resource { return v.parent }

// Handle returns the borrowed handle while the parent is alive.
func (v View) Handle() (native.Handle, error) {
	if v.parent == nil {
		return native.Invalid, errors.Disposed(v.kind)
	}
	if err := v.parent.Check(); err != nil {
		return native.Invalid, errors.OwnerDisposed(v.kind, v.parent.kind)
	}
	return v.handle, nil
}
