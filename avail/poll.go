package avail

import (
	"context"
	"time"

	"github.com/wippyai/pdf-runtime/errors"
)

// Poll calls check until it reports true, fails, or ctx is done. Between
// calls it runs wait, typically the transport step that honors the requested
// segments.
func Poll(ctx context.Context, check func() (bool, error), wait func(context.Context) error) error {
	for {
		ok, err := check()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.PhaseAvail, errors.KindAvailabilityNotReady, err, "polling stopped")
		}
		if err := wait(ctx); err != nil {
			return err
		}
	}
}

// Interval returns a wait function that sleeps for d or until ctx is done.
func Interval(d time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return errors.Wrap(errors.PhaseAvail, errors.KindAvailabilityNotReady, ctx.Err(), "polling stopped")
		case <-t.C:
			return nil
		}
	}
}
