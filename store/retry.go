package store

import (
	"context"
	"fmt"
	"time"
)

// WithRetry runs op up to attempts times, doubling backoff between tries.
// Every durable write goes through here; there are no inline retry loops.
func WithRetry(ctx context.Context, attempts int, backoff time.Duration, op func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(backoff << i)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry interrupted: %w (last error: %v)", ctx.Err(), err)
		case <-t.C:
		}
	}
	if attempts == 1 {
		return err
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
