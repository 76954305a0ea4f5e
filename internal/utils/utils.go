package utils

import (
	"context"
	"time"
)

// sleep is swapped in tests so waits can be observed without real delay.
var sleep = time.Sleep

// WaitFor blocks for the given duration or until the context is canceled,
// whichever comes first. A non-positive duration returns immediately.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
