// Package cow provides a copy-on-write slice: readers load an immutable
// snapshot without locking, writers publish a fresh copy.
package cow

import (
	"sync"
	"sync/atomic"
)

// List is safe for concurrent use. The zero value is an empty list.
type List[T any] struct {
	mu  sync.Mutex // serializes writers only
	ptr atomic.Pointer[[]T]
}

// Snapshot returns the current contents. The returned slice must not be modified.
func (l *List[T]) Snapshot() []T {
	p := l.ptr.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (l *List[T]) Len() int { return len(l.Snapshot()) }

// AppendIf adds v unless present reports true for an element already in the
// list. A nil present always appends.
// The check and the append happen under the writer lock.
func (l *List[T]) AppendIf(v T, present func(T) bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.Snapshot()
	if present != nil {
		for _, e := range cur {
			if present(e) {
				return false
			}
		}
	}
	next := make([]T, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, v)
	l.ptr.Store(&next)
	return true
}

// RemoveFunc drops every element for which match reports true and returns
// how many were removed. Order of the remaining elements is preserved.
func (l *List[T]) RemoveFunc(match func(T) bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.Snapshot()
	next := make([]T, 0, len(cur))
	for _, e := range cur {
		if !match(e) {
			next = append(next, e)
		}
	}
	removed := len(cur) - len(next)
	if removed > 0 {
		l.ptr.Store(&next)
	}
	return removed
}
