package render

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/pdf-runtime/document"
	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/resource"
)

// Options select the device region and rendering mode.
type Options struct {
	// X, Y, Width and Height are the device region the page is mapped to.
	// A zero Width or Height means the whole bitmap.
	X, Y          int
	Width, Height int
	Rotation      native.Rotation
	Flags         native.RenderFlags
}

func (o Options) region(b *Bitmap) (x, y, w, h int) {
	w, h = o.Width, o.Height
	if w == 0 || h == 0 {
		return 0, 0, b.width, b.height
	}
	return o.X, o.Y, w, h
}

// Session is an open progressive render of one page into one bitmap.
//
// A session is not safe for use from several goroutines, and it must be
// resumed on the goroutine that started it.
type Session struct {
	page   *document.Page
	bitmap *Bitmap
	res    *resource.Resource
	mu     sync.Mutex
	status native.RenderStatus
}

// Lookup returns the session open for page, or nil.
func Lookup(page *document.Page) *Session {
	r := page.Resource().Registry().Find(native.KindRenderSession)
	if r == nil {
		return nil
	}
	s, _ := r.Value().(*Session)
	return s
}

// Start begins rendering page into bitmap. pause is polled while the engine
// works and may be nil to render to completion. A page has at most one open
// session; starting another before Close is RenderSessionMisuse.
//
// The session must be closed whatever status it ends in.
func Start(bitmap *Bitmap, page *document.Page, opts Options, pause native.PauseFunc) (*Session, native.RenderStatus, error) {
	if bitmap == nil || page == nil {
		return nil, native.RenderFailed, errors.InvalidInput(errors.PhaseRender, "nil bitmap or page")
	}
	if Lookup(page) != nil {
		return nil, native.RenderFailed, errors.RenderMisuse("a render session is already open for this page")
	}
	ph, err := page.Resource().Handle()
	if err != nil {
		return nil, native.RenderFailed, err
	}
	bh, err := bitmap.res.Handle()
	if err != nil {
		return nil, native.RenderFailed, err
	}

	e := page.Engine()
	s := &Session{page: page, bitmap: bitmap, status: native.RenderReady}
	// The engine keys progress by page handle and frees it with the page, so
	// the session is closed explicitly before the page and needs no cleanup.
	s.res, err = resource.New(native.KindRenderSession, ph, e.RenderPageClose,
		resource.Owner(page.Resource()),
		resource.Value(s),
		resource.NoCleanup())
	if err != nil {
		return nil, native.RenderFailed, err
	}

	x, y, w, h := opts.region(bitmap)
	st := e.RenderPageBitmapStart(bh, ph, x, y, w, h, opts.Rotation, opts.Flags, pause)
	s.status = st

	Logger().Debug("render started",
		zap.Int("page", page.Index()),
		zap.Stringer("status", st))
	return s, st, nil
}

// Status returns the status of the last Start or Continue call.
func (s *Session) Status() native.RenderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Page returns the page being rendered.
func (s *Session) Page() *document.Page { return s.page }

// Bitmap returns the target bitmap.
func (s *Session) Bitmap() *Bitmap { return s.bitmap }

// Closed reports whether Close has run, directly or through the page.
func (s *Session) Closed() bool { return s.res.Disposed() }

// Continue resumes a session that reported ToBeContinued. Calling it after
// Done, Failed or Close is RenderSessionMisuse.
func (s *Session) Continue(pause native.PauseFunc) (native.RenderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ph, err := s.res.Handle()
	if err != nil {
		return native.RenderFailed, errors.New(errors.PhaseRender, errors.KindRenderSessionMisuse).
			Resource(native.KindRenderSession).
			Detail("continue on a closed session").
			Cause(err).
			Build()
	}
	if s.status != native.RenderToBeContinued {
		return s.status, errors.RenderMisuse("continue after " + s.status.String())
	}
	if !s.bitmap.res.Alive() {
		s.status = native.RenderFailed
		return s.status, errors.Disposed(native.KindBitmap)
	}

	s.status = s.page.Engine().RenderPageContinue(ph, pause)
	return s.status, nil
}

// Close releases the engine's progress state. It must be called once per
// session; a second call is RenderSessionMisuse.
func (s *Session) Close() error {
	if !s.res.Dispose() {
		return errors.RenderMisuse("session already closed")
	}
	return nil
}

// Continue resumes the session open for page.
func Continue(page *document.Page, pause native.PauseFunc) (native.RenderStatus, error) {
	s := Lookup(page)
	if s == nil {
		return native.RenderFailed, errors.RenderMisuse("no render session open for this page")
	}
	return s.Continue(pause)
}

// Close closes the session open for page.
func Close(page *document.Page) error {
	s := Lookup(page)
	if s == nil {
		return errors.RenderMisuse("no render session open for this page")
	}
	return s.Close()
}

// Page renders page into bitmap in one blocking call.
func Page(bitmap *Bitmap, page *document.Page, opts Options) error {
	if Lookup(page) != nil {
		return errors.RenderMisuse("a render session is open for this page")
	}
	ph, err := page.Resource().Handle()
	if err != nil {
		return err
	}
	bh, err := bitmap.res.Handle()
	if err != nil {
		return err
	}
	x, y, w, h := opts.region(bitmap)
	page.Engine().RenderPageBitmap(bh, ph, x, y, w, h, opts.Rotation, opts.Flags)
	return nil
}

// Run drives a progressive render to a terminal status and closes the
// session. Between steps it calls yield, which may return an error to
// abandon the render. pause is built fresh for every step.
func Run(ctx context.Context, bitmap *Bitmap, page *document.Page, opts Options, pause func() native.PauseFunc, yield func(*Session) error) (native.RenderStatus, error) {
	if pause == nil {
		pause = func() native.PauseFunc { return nil }
	}
	s, st, err := Start(bitmap, page, opts, pause())
	if err != nil {
		return st, err
	}
	defer s.Close()

	steps := 1
	for st == native.RenderToBeContinued {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if yield != nil {
			if err := yield(s); err != nil {
				return st, err
			}
		}
		if st, err = s.Continue(pause()); err != nil {
			return st, err
		}
		steps++
	}

	Logger().Debug("render finished",
		zap.Int("page", page.Index()),
		zap.Int("steps", steps),
		zap.Stringer("status", st))
	return st, nil
}
