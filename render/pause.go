package render

import (
	"context"
	"time"

	"github.com/wippyai/pdf-runtime/native"
)

// Never never pauses. Passing nil has the same effect.
func Never() native.PauseFunc {
	return func() bool { return false }
}

// PauseOnce pauses at the first check and never again.
func PauseOnce() native.PauseFunc {
	paused := false
	return func() bool {
		if paused {
			return false
		}
		paused = true
		return true
	}
}

// PauseEvery pauses at every nth check.
func PauseEvery(n int) native.PauseFunc {
	if n <= 0 {
		n = 1
	}
	calls := 0
	return func() bool {
		calls++
		return calls%n == 0
	}
}

// PauseAfter pauses once d has passed since the predicate was created.
// Create a fresh predicate for every Start or Continue call.
func PauseAfter(d time.Duration) native.PauseFunc {
	deadline := time.Now().Add(d)
	return func() bool {
		return !time.Now().Before(deadline)
	}
}

// PauseOnContext pauses once ctx is done, looking at it every interval
// checks.
func PauseOnContext(ctx context.Context, interval int) native.PauseFunc {
	if interval <= 0 {
		interval = 1
	}
	calls := 0
	return func() bool {
		calls++
		if calls%interval != 0 {
			return false
		}
		return ctx.Err() != nil
	}
}
