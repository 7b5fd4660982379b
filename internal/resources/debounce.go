package resources

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a member search is sent
const DefaultDebounce = 500 * time.Millisecond

// ErrSuperseded is returned to callers whose debounced call was replaced by a newer one
var ErrSuperseded = errors.New("superseded by a newer call")

// Debouncer collapses bursts of calls so only the last one in a quiet window runs
type Debouncer struct {
	mu   sync.Mutex
	wait time.Duration
	gen  uint64
}

func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Do waits out the quiet period and runs fn if no newer call arrived meanwhile
func (d *Debouncer) Do(ctx context.Context, fn func(context.Context) error) error {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.mu.Unlock()

	timer := time.NewTimer(d.wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	d.mu.Lock()
	latest := gen == d.gen
	d.mu.Unlock()

	if !latest {
		return ErrSuperseded
	}
	return fn(ctx)
}
