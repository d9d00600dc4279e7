package document

import (
	"go.uber.org/zap"

	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/resource"
)

// Document is an open document.
type Document struct {
	engine native.Engine
	res    *resource.Resource
}

// New wraps a document handle returned by an engine factory call and
// registers it under owner. A sentinel handle yields ConstructionFailed with
// the engine's last error.
func New(e native.Engine, h native.Handle, owner *resource.Resource) (*Document, error) {
	res, err := resource.New(native.KindDocument, h, e.CloseDocument,
		resource.Owner(owner),
		resource.LastError(e.LastError))
	if err != nil {
		return nil, err
	}
	Logger().Debug("document opened",
		zap.Uint32("handle", uint32(h)),
		zap.Int("pages", e.PageCount(h)))
	return &Document{engine: e, res: res}, nil
}

// Engine returns the engine the document belongs to.
func (d *Document) Engine() native.Engine { return d.engine }

// Resource returns the document's resource.
func (d *Document) Resource() *resource.Resource { return d.res }

// Close closes every page and font still open, then the document.
func (d *Document) Close() error {
	d.res.Dispose()
	return nil
}

// Closed reports whether the document can no longer be used.
func (d *Document) Closed() bool { return !d.res.Alive() }

// PageCount returns the number of pages.
func (d *Document) PageCount() (int, error) {
	h, err := d.res.Handle()
	if err != nil {
		return 0, err
	}
	return d.engine.PageCount(h), nil
}

// FileVersion returns the version from the header, for example 17 for 1.7.
func (d *Document) FileVersion() (int, error) {
	h, err := d.res.Handle()
	if err != nil {
		return 0, err
	}
	v, ok := d.engine.FileVersion(h)
	if !ok {
		return 0, errors.NativeFailure(errors.PhaseAccess, native.KindDocument, d.engine.LastError(), "file version unknown")
	}
	return v, nil
}

// PageSize returns the size in points of page index without loading it.
func (d *Document) PageSize(index int) (width, height float64, err error) {
	h, err := d.res.Handle()
	if err != nil {
		return 0, 0, err
	}
	if n := d.engine.PageCount(h); index < 0 || index >= n {
		return 0, 0, errors.OutOfBounds(errors.PhaseAccess, native.KindPage, index, n)
	}
	w, ht, ok := d.engine.PageSizeByIndex(h, index)
	if !ok {
		return 0, 0, errors.NativeFailure(errors.PhaseAccess, native.KindPage, d.engine.LastError(), "page size unavailable")
	}
	return w, ht, nil
}

// LoadPage opens page index. Loading the same index twice yields two
// independent pages.
func (d *Document) LoadPage(index int) (*Page, error) {
	h, err := d.res.Handle()
	if err != nil {
		return nil, err
	}
	if n := d.engine.PageCount(h); index < 0 || index >= n {
		return nil, errors.OutOfBounds(errors.PhaseConstruct, native.KindPage, index, n)
	}
	return newPage(d, d.engine.LoadPage(h, index), index)
}

// Pages returns the number of pages open on this document.
func (d *Document) Pages() int {
	n := 0
	for _, c := range d.res.Registry().Children() {
		if c.Kind() == native.KindPage {
			n++
		}
	}
	return n
}
