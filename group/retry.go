package group

import (
	"context"
	"log"
	"time"
)

// Defaults per spec §4.6: send_control_message and message_peer wrap their
// send in retry_timeout(period=2s, attempts=5); each attempt runs with a
// 5-second TCP connect timeout.
const (
	DefaultRetryPeriod   = 2 * time.Second
	DefaultRetryAttempts = 5
	ConnectTimeout       = 5 * time.Second
)

// retryTimeout calls fn until it succeeds or attempts are exhausted,
// sleeping period between failed attempts. It is the Go rendering of the
// original implementation's retry_timeout helper (src/utils.rs): attempts
// must be positive, and the final error is returned once retries run out.
func retryTimeout(ctx context.Context, period time.Duration, attempts int, fn func() error) error {
	if attempts <= 0 {
		panic("group: retryTimeout requires attempts > 0")
	}

	remaining := attempts
	for {
		err := fn()
		if err == nil {
			return nil
		}
		remaining--
		log.Printf("W: retry: %v, %d retries left", err, remaining)
		if remaining == 0 {
			return err
		}

		select {
		case <-time.After(period):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
