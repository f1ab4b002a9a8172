package core

// save_limiter.go bounds how many saves hit the database at once.
//
// Every session save holds one slot for the duration of its persistence call.
// When all slots are taken a save waits up to maxWait and then fails with
// ErrTooManySaves; the session's rows stay unsaved and the user can retry.
// WaitForDrain lets shutdown block until in-flight saves have finished.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManySaves is returned when no save slot frees up within the wait time.
var ErrTooManySaves = errors.New("too many saves in progress, please try again later")

// DefaultMaxConcurrentSaves is the default limit for parallel saves.
const DefaultMaxConcurrentSaves = 5

// DefaultSaveWait is how long to wait for a slot before rejecting.
const DefaultSaveWait = 10 * time.Second

// SaveLimiter is a weighted semaphore with a bounded wait.
type SaveLimiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64
}

// NewSaveLimiter allows at most maxConcurrent saves. Non-positive arguments
// fall back to the defaults.
func NewSaveLimiter(maxConcurrent int, maxWait time.Duration) *SaveLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSaves
	}
	if maxWait <= 0 {
		maxWait = DefaultSaveWait
	}
	return &SaveLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must call Release when the save completes.
// Returns ctx.Err() if ctx ends first, ErrTooManySaves if the wait times out.
func (l *SaveLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManySaves
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *SaveLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *SaveLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of saves holding a slot.
func (l *SaveLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *SaveLimiter) MaxConcurrent() int {
	return l.max
}

// WaitForDrain blocks until no save holds a slot or ctx ends.
func (l *SaveLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SaveLimiterStatus is a snapshot of the limiter for monitoring.
type SaveLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *SaveLimiter) Status() SaveLimiterStatus {
	active := l.ActiveCount()
	return SaveLimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}
