package sim

import (
	"fmt"
	"sync"

	"github.com/wippyai/pdf-runtime/native"
)

// Release is one journal entry.
type Release struct {
	Handle native.Handle
	Kind   native.Kind
}

// Engine is the reference native.Engine. The zero value is not usable; call
// New.
type Engine struct {
	objects    *native.Table[any]
	journal    []Release
	violations []string
	mu         sync.Mutex
	lastErr    native.ErrorCode
	libraries  int
	everInit   bool
}

var _ native.Engine = (*Engine)(nil)

// New creates an engine with an empty handle table.
func New() *Engine {
	return &Engine{objects: native.NewTable[any]()}
}

// LastError returns the reason for the most recent factory failure.
func (e *Engine) LastError() native.ErrorCode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) fail(code native.ErrorCode) native.Handle {
	e.mu.Lock()
	e.lastErr = code
	e.mu.Unlock()
	return native.Invalid
}

func (e *Engine) create(kind native.Kind, v any) native.Handle {
	h, err := e.objects.Create(kind, v)
	if err != nil {
		return e.fail(native.ErrUnknown)
	}
	e.mu.Lock()
	e.lastErr = native.ErrSuccess
	e.mu.Unlock()
	return h
}

func (e *Engine) violate(format string, args ...any) {
	e.mu.Lock()
	e.violations = append(e.violations, fmt.Sprintf(format, args...))
	e.mu.Unlock()
}

// release drops h from the table and journals it. Releasing a handle that is
// not live, or is live under another kind, is recorded as a double free.
func (e *Engine) release(h native.Handle, kind native.Kind) (any, bool) {
	if k, ok := e.objects.Kind(h); !ok || k != kind {
		e.violate("release of %s handle %d that is not live", kind, h)
		return nil, false
	}
	v, _ := e.objects.Drop(h)

	e.mu.Lock()
	e.journal = append(e.journal, Release{Handle: h, Kind: kind})
	if e.everInit && e.libraries == 0 && kind != native.KindLibrary {
		e.violations = append(e.violations, fmt.Sprintf("%s %d released after library destroyed", kind, h))
	}
	e.mu.Unlock()
	return v, true
}

func lookup[T any](e *Engine, h native.Handle, kind native.Kind) (T, bool) {
	v, ok := e.objects.GetKind(h, kind)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Releases returns a copy of the release journal in call order.
func (e *Engine) Releases() []Release {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Release(nil), e.journal...)
}

// ResetJournal clears the release journal and recorded violations.
func (e *Engine) ResetJournal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.journal = nil
	e.violations = nil
}

// Violations returns release-order mistakes a native engine would not
// tolerate.
func (e *Engine) Violations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.violations...)
}

// Live returns the number of live handles of kind.
func (e *Engine) Live(kind native.Kind) int {
	return e.objects.CountKind(kind)
}

type library struct{}

func (e *Engine) InitLibrary() native.Handle {
	h := e.create(native.KindLibrary, &library{})
	if h.Valid() {
		e.mu.Lock()
		e.libraries++
		e.everInit = true
		e.mu.Unlock()
	}
	return h
}

func (e *Engine) DestroyLibrary(lib native.Handle) {
	if _, ok := e.release(lib, native.KindLibrary); !ok {
		return
	}
	e.mu.Lock()
	e.libraries--
	e.mu.Unlock()
}
