package avail

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/pdf-runtime/document"
	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/resource"
)

// Context answers availability queries for one incremental source. It owns
// the documents opened through it.
type Context struct {
	engine      native.Engine
	res         *resource.Resource
	src         IncrementalSource
	pages       map[int]bool
	mu          sync.Mutex
	docReported atomic.Bool
}

// New creates an availability context for src under lib.
func New(lib *document.Library, src IncrementalSource) (*Context, error) {
	if src == nil {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "nil source")
	}
	if err := lib.Resource().Check(); err != nil {
		return nil, err
	}
	e := lib.Engine()
	if err := document.CheckSize(e, src.Size()); err != nil {
		return nil, err
	}
	b := bridge{src: src}
	res, err := resource.New(native.KindAvail, e.AvailCreate(b, b), e.AvailDestroy,
		resource.Owner(lib.Resource()),
		resource.LastError(e.LastError))
	if err != nil {
		return nil, err
	}
	return &Context{
		engine: e,
		res:    res,
		src:    src,
		pages:  make(map[int]bool),
	}, nil
}

// Source returns the source the context reads from.
func (c *Context) Source() IncrementalSource { return c.src }

// Resource returns the context's resource.
func (c *Context) Resource() *resource.Resource { return c.res }

// Close closes any document opened through the context, then the context.
func (c *Context) Close() error {
	c.res.Dispose()
	return nil
}

func dataError(kind native.Kind, detail string) error {
	return errors.New(errors.PhaseAvail, errors.KindConstructionFailed).
		Resource(kind).
		Code(native.ErrFormat).
		Detail("%s", detail).
		Build()
}

// IsDocumentAvailable reports whether enough data is present to open the
// document. Each call may request segments from the source. Corrupt data
// fails with ConstructionFailed.
func (c *Context) IsDocumentAvailable() (bool, error) {
	h, err := c.res.Handle()
	if err != nil {
		return false, err
	}
	switch c.engine.AvailIsDocAvail(h, bridge{src: c.src}) {
	case native.DataAvail:
		c.docReported.Store(true)
		return true, nil
	case native.DataError:
		return false, dataError(native.KindDocument, "document data is unusable")
	}
	return false, nil
}

// IsPageAvailable reports whether page index can be loaded. Each call may
// request segments from the source.
func (c *Context) IsPageAvailable(index int) (bool, error) {
	h, err := c.res.Handle()
	if err != nil {
		return false, err
	}
	if index < 0 {
		return false, errors.OutOfBounds(errors.PhaseAvail, native.KindPage, index, 0)
	}
	switch c.engine.AvailIsPageAvail(h, index, bridge{src: c.src}) {
	case native.DataAvail:
		c.mu.Lock()
		c.pages[index] = true
		c.mu.Unlock()
		return true, nil
	case native.DataError:
		return false, dataError(native.KindPage, "page data is unusable")
	}
	return false, nil
}

// FormStatus returns the detailed state of the interactive form data. Each
// call may request segments from the source.
func (c *Context) FormStatus() (native.FormStatus, error) {
	h, err := c.res.Handle()
	if err != nil {
		return native.FormError, err
	}
	st := c.engine.AvailIsFormAvail(h, bridge{src: c.src})
	if st == native.FormError {
		return st, dataError(native.KindDocument, "form data is unusable")
	}
	return st, nil
}

// IsFormAvailable reports whether form data is present. A document without
// a form counts as available.
func (c *Context) IsFormAvailable() (bool, error) {
	st, err := c.FormStatus()
	if err != nil {
		return false, err
	}
	return st == native.FormAvail || st == native.FormNotExist, nil
}

// Linearization returns the linearization state known so far. It never
// requests segments.
func (c *Context) Linearization() (native.Linearization, error) {
	h, err := c.res.Handle()
	if err != nil {
		return native.LinearizationUnknown, err
	}
	return c.engine.AvailIsLinearized(h), nil
}

// IsLinearized reports whether the document is known to be linearized.
func (c *Context) IsLinearized() (bool, error) {
	l, err := c.Linearization()
	return l == native.Linearized, err
}

// TryOpenDocument opens the document once IsDocumentAvailable has reported
// true. It returns (nil, nil) while the engine still refuses, so the caller
// keeps polling. A wrong password fails with ConstructionFailed.
func (c *Context) TryOpenDocument(password string) (*document.Document, error) {
	h, err := c.res.Handle()
	if err != nil {
		return nil, err
	}
	if !c.docReported.Load() {
		return nil, errors.NotReady(native.KindDocument, "document has not been reported available")
	}

	doc := c.engine.AvailGetDocument(h, password)
	if !doc.Valid() {
		switch code := c.engine.LastError(); code {
		case native.ErrPassword, native.ErrSecurity:
			return nil, errors.ConstructionFailed(native.KindDocument, code)
		}
		return nil, nil
	}
	return document.New(c.engine, doc, c.res)
}

// LoadPage loads page index of a document opened through this context. It
// fails with AvailabilityNotReady unless IsPageAvailable reported true.
func (c *Context) LoadPage(doc *document.Document, index int) (*document.Page, error) {
	if err := c.owns(doc); err != nil {
		return nil, err
	}
	c.mu.Lock()
	ready := c.pages[index]
	c.mu.Unlock()
	if !ready {
		return nil, errors.NotReady(native.KindPage, "page has not been reported available")
	}
	return doc.LoadPage(index)
}

// FirstPageNumber returns the page a linearized document is optimized to
// show first.
func (c *Context) FirstPageNumber(doc *document.Document) (int, error) {
	if err := c.owns(doc); err != nil {
		return 0, err
	}
	h, err := doc.Resource().Handle()
	if err != nil {
		return 0, err
	}
	return c.engine.AvailGetFirstPageNum(h), nil
}

func (c *Context) owns(doc *document.Document) error {
	if doc == nil {
		return errors.InvalidInput(errors.PhaseAvail, "nil document")
	}
	if err := doc.Resource().Check(); err != nil {
		return err
	}
	if doc.Resource().Owner() != c.res {
		return errors.OwnershipViolation(native.KindDocument, "document was not opened through this context")
	}
	return nil
}
