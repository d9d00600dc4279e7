package document

import (
	"sync"

	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/resource"
)

// Page is an open page of a Document.
type Page struct {
	doc   *Document
	res   *resource.Resource
	text  *TextPage
	mu    sync.Mutex
	index int
}

func newPage(d *Document, h native.Handle, index int) (*Page, error) {
	res, err := resource.New(native.KindPage, h, d.engine.ClosePage,
		resource.Owner(d.res),
		resource.LastError(d.engine.LastError))
	if err != nil {
		return nil, err
	}
	return &Page{doc: d, res: res, index: index}, nil
}

// Document returns the document the page was loaded from.
func (p *Page) Document() *Document { return p.doc }

// Engine returns the engine the page belongs to.
func (p *Page) Engine() native.Engine { return p.doc.engine }

// Resource returns the page's resource.
func (p *Page) Resource() *resource.Resource { return p.res }

// Index returns the zero-based page index.
func (p *Page) Index() int { return p.index }

// Close closes the text layer and any render session, then the page.
func (p *Page) Close() error {
	p.res.Dispose()
	return nil
}

// Closed reports whether the page can no longer be used.
func (p *Page) Closed() bool { return !p.res.Alive() }

// Size returns the page size in points, with the page rotation applied.
func (p *Page) Size() (width, height float64, err error) {
	h, err := p.res.Handle()
	if err != nil {
		return 0, 0, err
	}
	return p.doc.engine.PageWidth(h), p.doc.engine.PageHeight(h), nil
}

// Rotation returns the page's own rotation.
func (p *Page) Rotation() (native.Rotation, error) {
	h, err := p.res.Handle()
	if err != nil {
		return native.Rotate0, err
	}
	return p.doc.engine.PageRotation(h), nil
}

// TextLayer returns the page's text layer, loading it on first use. The
// same TextPage is returned until it or the page is closed.
func (p *Page) TextLayer() (*TextPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.text != nil && p.text.res.Alive() {
		return p.text, nil
	}
	h, err := p.res.Handle()
	if err != nil {
		return nil, err
	}
	e := p.doc.engine
	res, err := resource.New(native.KindTextPage, e.TextLoadPage(h), e.TextClosePage,
		resource.Owner(p.res),
		resource.LastError(e.LastError))
	if err != nil {
		return nil, err
	}
	p.text = &TextPage{engine: e, res: res}
	return p.text, nil
}

// ObjectCount returns the number of page objects.
func (p *Page) ObjectCount() (int, error) {
	h, err := p.res.Handle()
	if err != nil {
		return 0, err
	}
	n := p.doc.engine.CountPageObjects(h)
	if n < 0 {
		return 0, errors.NativeFailure(errors.PhaseAccess, native.KindPageObject, p.doc.engine.LastError(), "count page objects")
	}
	return n, nil
}

// Object returns page object i. The object is owned by the page.
func (p *Page) Object(i int) (PageObject, error) {
	n, err := p.ObjectCount()
	if err != nil {
		return PageObject{}, err
	}
	if i < 0 || i >= n {
		return PageObject{}, errors.OutOfBounds(errors.PhaseAccess, native.KindPageObject, i, n)
	}
	h, _ := p.res.Handle()
	v, err := resource.NewView(p.res, native.KindPageObject, p.doc.engine.GetPageObject(h, i))
	if err != nil {
		return PageObject{}, err
	}
	return PageObject{engine: p.doc.engine, view: v, index: i}, nil
}

// Objects returns every page object.
func (p *Page) Objects() ([]PageObject, error) {
	n, err := p.ObjectCount()
	if err != nil {
		return nil, err
	}
	objs := make([]PageObject, 0, n)
	for i := 0; i < n; i++ {
		o, err := p.Object(i)
		if err != nil {
			return nil, err
		}
		objs = append(objs, o)
	}
	return objs, nil
}

// AnnotationCount returns the number of annotations.
func (p *Page) AnnotationCount() (int, error) {
	h, err := p.res.Handle()
	if err != nil {
		return 0, err
	}
	n := p.doc.engine.CountAnnots(h)
	if n < 0 {
		return 0, errors.NativeFailure(errors.PhaseAccess, native.KindAnnotation, p.doc.engine.LastError(), "count annotations")
	}
	return n, nil
}

// Annotation returns annotation i.
func (p *Page) Annotation(i int) (Annotation, error) {
	n, err := p.AnnotationCount()
	if err != nil {
		return Annotation{}, err
	}
	if i < 0 || i >= n {
		return Annotation{}, errors.OutOfBounds(errors.PhaseAccess, native.KindAnnotation, i, n)
	}
	h, _ := p.res.Handle()
	v, err := resource.NewView(p.res, native.KindAnnotation, p.doc.engine.GetAnnot(h, i))
	if err != nil {
		return Annotation{}, err
	}
	return Annotation{engine: p.doc.engine, view: v, index: i}, nil
}

// Annotations returns every annotation.
func (p *Page) Annotations() ([]Annotation, error) {
	n, err := p.AnnotationCount()
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, 0, n)
	for i := 0; i < n; i++ {
		a, err := p.Annotation(i)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
