// Package testutil holds helpers for tests that wait on another goroutine.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// Default bounds for Eventually and WaitFor in package tests.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultInterval = 5 * time.Millisecond
)

// Poll checks condition every interval until it returns true, timeout
// elapses, or ctx is done.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	_, err := WaitFor(ctx, func() bool { return condition() }, func(ok bool) bool { return ok }, timeout, interval)
	return err
}

// WaitFor calls getter every interval until predicate accepts its value, and
// returns that value. It fails once timeout elapses or ctx is done.
func WaitFor[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout, interval time.Duration) (T, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state := getter()
		if predicate(state) {
			return state, nil
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-deadline.C:
			var zero T
			return zero, fmt.Errorf("timeout after %v waiting for %T (last: %v)", timeout, state, state)
		case <-ticker.C:
		}
	}
}

// Eventually is Poll with the default bounds and a background context.
func Eventually(condition func() bool) error {
	return Poll(context.Background(), condition, DefaultTimeout, DefaultInterval)
}
