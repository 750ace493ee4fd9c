package cachenotify

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Register after Close.
	ErrClosed = errors.New("cachenotify: notifier closed")

	// ErrNilFactory is returned when a ListenerConfig carries no listener factory.
	ErrNilFactory = errors.New("cachenotify: listener factory is required")

	// ErrNilListener is returned when the listener factory produced nil.
	ErrNilListener = errors.New("cachenotify: listener factory returned nil")

	// ErrNoCapability is returned when the listener implements none of
	// CreatedListener, UpdatedListener, RemovedListener, ExpiredListener.
	ErrNoCapability = errors.New("cachenotify: listener implements no event capability")

	// ErrNotComparable is returned when a listener or factory has a dynamic type
	// that cannot be compared with ==. Use pointer types (or ListenerOf/FilterOf).
	ErrNotComparable = errors.New("cachenotify: value is not comparable")
)

// SourceError reports a failure to build the rendezvous identity of a mutation,
// usually because the key or value codec could not encode it.
type SourceError struct {
	Cache string
	Op    string // "add_wait", "remove_wait", "release"
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("cachenotify: %s on cache %q: encode source: %v", e.Op, e.Cache, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
