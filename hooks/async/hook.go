// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    ReleaseUnmatchedEvery: 100, // sample: ~every 100th unmatched release
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	n, _ := cachenotify.New[string, User](cachenotify.Options[string, User]{
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/cachenotify"
)

// Hooks forwards every callback to inner on a bounded worker queue so the
// notify path never blocks on hook I/O. Callbacks arriving while the queue is
// full, or after Close, are dropped and counted.
type Hooks struct {
	inner cachenotify.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once

	mu      sync.RWMutex // guards closed against concurrent sends
	closed  bool
	dropped atomic.Uint64
}

var _ cachenotify.Hooks = (*Hooks)(nil)

func New(inner cachenotify.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = cachenotify.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close stops accepting callbacks and waits until queued ones have run.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped returns the number of callbacks discarded so far.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) ListenerFailed(cache string, t cachenotify.EventType, err error) {
	h.try(func() { h.inner.ListenerFailed(cache, t, err) })
}
func (h *Hooks) RemovalSuppressed(cache string) { h.try(func() { h.inner.RemovalSuppressed(cache) }) }
func (h *Hooks) ReleaseUnmatched(cache string)  { h.try(func() { h.inner.ReleaseUnmatched(cache) }) }
func (h *Hooks) WaitWithdrawn(cache string)     { h.try(func() { h.inner.WaitWithdrawn(cache) }) }
func (h *Hooks) ListenerCloseFailed(err error)  { h.try(func() { h.inner.ListenerCloseFailed(err) }) }
