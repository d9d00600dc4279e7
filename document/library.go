package document

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/resource"
)

// Option configures a Library.
type Option func(*options)

type options struct {
	observers []resource.Observer
}

// WithObserver subscribes o to lifecycle events of every resource created
// under the library.
func WithObserver(o resource.Observer) Option {
	return func(opts *options) { opts.observers = append(opts.observers, o) }
}

// Library is an initialized engine instance and the root owner.
type Library struct {
	engine native.Engine
	res    *resource.Resource
}

// NewLibrary initializes the engine.
func NewLibrary(e native.Engine, opts ...Option) (*Library, error) {
	if e == nil {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "nil engine")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resource.New(native.KindLibrary, e.InitLibrary(), e.DestroyLibrary,
		resource.LastError(e.LastError))
	if err != nil {
		return nil, err
	}
	for _, obs := range o.observers {
		res.Subscribe(obs)
	}
	return &Library{engine: e, res: res}, nil
}

// Engine returns the engine the library was initialized on.
func (l *Library) Engine() native.Engine { return l.engine }

// Resource returns the library's root resource.
func (l *Library) Resource() *resource.Resource { return l.res }

// Subscribe adds an observer to the library's resource tree.
func (l *Library) Subscribe(o resource.Observer) func() { return l.res.Subscribe(o) }

// Close disposes every document, context and bitmap still open, then
// destroys the library. It is safe to call more than once.
func (l *Library) Close() error {
	l.res.Dispose()
	return nil
}

// OpenBytes opens a document held in memory. Empty or unparsable data
// fails with ConstructionFailed.
func (l *Library) OpenBytes(data []byte, password string) (*Document, error) {
	if err := l.res.Check(); err != nil {
		return nil, err
	}
	if err := CheckSize(l.engine, int64(len(data))); err != nil {
		return nil, err
	}
	return New(l.engine, l.engine.LoadMemDocument(data, password), l.res)
}

// OpenFile reads path and opens it.
func (l *Library) OpenFile(path, password string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindInvalidInput, err, "read document file")
	}
	doc, err := l.OpenBytes(data, password)
	if err != nil {
		Logger().Debug("open failed", zap.String("path", path), zap.Error(err))
	}
	return doc, err
}

// OpenReader opens a document the engine reads through r as it needs it.
// r must stay readable until the document is closed.
func (l *Library) OpenReader(r io.ReaderAt, size int64, password string) (*Document, error) {
	if err := l.res.Check(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "nil reader")
	}
	if err := CheckSize(l.engine, size); err != nil {
		return nil, err
	}
	return New(l.engine, l.engine.LoadCustomDocument(ReaderAccess(r, size), password), l.res)
}

// CheckSize fails with InvalidInput when e cannot address a document of
// size bytes.
func CheckSize(e native.Engine, size int64) error {
	if native.SizeFits(e, size) {
		return nil
	}
	return errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
		Resource(native.KindDocument).
		Detail("document size %d exceeds the engine limit", size).
		Build()
}

// ReaderAccess adapts r to the engine's block reader.
func ReaderAccess(r io.ReaderAt, size int64) native.FileAccess {
	return &readerAccess{r: r, size: size}
}

type readerAccess struct {
	r    io.ReaderAt
	size int64
}

func (a *readerAccess) Len() int64 { return a.size }

func (a *readerAccess) ReadBlock(offset int64, buf []byte) bool {
	if offset < 0 || offset+int64(len(buf)) > a.size {
		return false
	}
	n, err := a.r.ReadAt(buf, offset)
	return n == len(buf) && (err == nil || err == io.EOF)
}
