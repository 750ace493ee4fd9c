package cachenotify

import (
	"context"
	"sync"
)

// Barrier is a one-shot signal a caller blocks on until the notification for
// its mutation has been dispatched. The zero value is not usable; call NewBarrier.
type Barrier struct {
	ch   chan struct{}
	once sync.Once
}

func NewBarrier() *Barrier {
	return &Barrier{ch: make(chan struct{})}
}

// Signal opens the barrier. Calls after the first are no-ops.
func (b *Barrier) Signal() {
	b.once.Do(func() { close(b.ch) })
}

// Done is closed once the barrier has been signaled.
func (b *Barrier) Done() <-chan struct{} { return b.ch }

// Wait blocks until the barrier is signaled or ctx ends. There is no built-in
// timeout; a caller giving up should withdraw the barrier with RemoveWait.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.ch:
		return nil
	case <-ctx.Done():
		// prefer the signal if both are ready
		select {
		case <-b.ch:
			return nil
		default:
		}
		return ctx.Err()
	}
}
