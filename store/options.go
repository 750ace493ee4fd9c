package store

import (
	"time"

	"github.com/unkn0wn-root/cachenotify"
	"github.com/unkn0wn-root/cachenotify/codec"
	"github.com/unkn0wn-root/cachenotify/provider"
)

const (
	defaultStripes    = 64
	defaultAsyncQueue = 256
	defaultEvictGrace = time.Minute
)

type Options[V any] struct {
	// Name identifies the cache in events and rendezvous sources. Required.
	Name string

	Provider provider.Provider // required
	// Codec encodes stored values and the value part of rendezvous sources,
	// so it must be deterministic. nil => CBOR in core deterministic mode.
	Codec codec.Codec[V]

	DefaultTTL time.Duration // 0 => entries never expire

	// EvictGrace is added to DefaultTTL when handing the TTL to the provider.
	// Expiry is decided by the entry envelope alone; the provider TTL only
	// reclaims entries nobody touched after they expired, which then go
	// without an EXPIRED event. 0 => 1m; negative => the provider gets no TTL.
	EvictGrace time.Duration

	Logger cachenotify.Logger // if nil, NopLogger is used
	Hooks  cachenotify.Hooks  // passed to the notifier; nil => NopHooks

	// AsyncWorkers > 0 dispatches events on that many workers. Events for the
	// same key always go to the same worker and keep their order. Callers still
	// wait for synchronous listeners. 0 => dispatch inline under the key lock.
	AsyncWorkers int
	AsyncQueue   int // per-worker queue length; 0 => 256

	Stripes int // key lock stripes; 0 => 64, rounded up to a power of two

	// Now returns the current time; nil => time.Now. Used for expiry.
	Now func() time.Time
}
