package document

import (
	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/resource"
)

// PageObject is a borrowed view of one object on a page. It has no Close:
// it is valid exactly as long as its page.
type PageObject struct {
	engine native.Engine
	view   resource.View
	index  int
}

// Index returns the object's position on its page.
func (o PageObject) Index() int { return o.index }

// Type returns the object type.
func (o PageObject) Type() (native.ObjectType, error) {
	h, err := o.view.Handle()
	if err != nil {
		return native.ObjectUnknown, err
	}
	return o.engine.PageObjectType(h), nil
}

// Bounds returns the object's bounding box in page space.
func (o PageObject) Bounds() (native.Rect, error) {
	h, err := o.view.Handle()
	if err != nil {
		return native.Rect{}, err
	}
	r, ok := o.engine.PageObjectBounds(h)
	if !ok {
		return native.Rect{}, errors.NativeFailure(errors.PhaseAccess, native.KindPageObject, o.engine.LastError(), "object bounds")
	}
	return r, nil
}

// Annotation is a borrowed view of one annotation on a page.
type Annotation struct {
	engine native.Engine
	view   resource.View
	index  int
}

// Index returns the annotation's position on its page.
func (a Annotation) Index() int { return a.index }

// Subtype returns the annotation subtype.
func (a Annotation) Subtype() (native.AnnotSubtype, error) {
	h, err := a.view.Handle()
	if err != nil {
		return native.AnnotUnknown, err
	}
	return a.engine.AnnotSubtype(h), nil
}

// Rect returns the annotation rectangle in page space.
func (a Annotation) Rect() (native.Rect, error) {
	h, err := a.view.Handle()
	if err != nil {
		return native.Rect{}, err
	}
	r, ok := a.engine.AnnotRect(h)
	if !ok {
		return native.Rect{}, errors.NativeFailure(errors.PhaseAccess, native.KindAnnotation, a.engine.LastError(), "annotation rect")
	}
	return r, nil
}
