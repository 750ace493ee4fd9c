// Package store is a small key/value cache that reports its mutations through
// a cachenotify.Notifier. Values live in a provider.Provider, framed with their
// absolute expiry so every provider expires entries the same way.
//
// Listener callbacks run while the key's lock is held (inline mode), so a
// listener must not call back into the same Cache for the same key.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"

	"github.com/unkn0wn-root/cachenotify"
	"github.com/unkn0wn-root/cachenotify/codec"
	"github.com/unkn0wn-root/cachenotify/internal/rendezvous"
	"github.com/unkn0wn-root/cachenotify/internal/wire"
	"github.com/unkn0wn-root/cachenotify/provider"
)

type Cache[V any] struct {
	name  string
	p     provider.Provider
	codec codec.Codec[V]
	n     *cachenotify.Notifier[string, V]
	ttl   time.Duration // envelope expiry
	evict time.Duration // provider TTL; 0 => none
	now   func() time.Time
	log   cachenotify.Logger

	stripes []sync.Mutex
	mask    uint64
	pump    *pump // nil => inline dispatch

	listening atomic.Bool // at least one listener registered
	closed    atomic.Bool
}

// attachment flips the listening flag as the notifier gains its first
// listener or loses its last one.
type attachment struct{ on *atomic.Bool }

func (a attachment) Attach() { a.on.Store(true) }
func (a attachment) Detach() { a.on.Store(false) }

func New[V any](opts Options[V]) (*Cache[V], error) {
	if opts.Name == "" {
		return nil, ErrNoName
	}
	if opts.Provider == nil {
		return nil, ErrNilProvider
	}

	c := &Cache[V]{
		name:  opts.Name,
		p:     opts.Provider,
		codec: opts.Codec,
		ttl:   opts.DefaultTTL,
		now:   opts.Now,
		log:   cachenotify.NopLogger{},
	}
	if opts.Logger != nil {
		c.log = opts.Logger
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.evict = evictTTL(opts.DefaultTTL, opts.EvictGrace)
	if c.codec == nil {
		cb, err := codec.NewCBOR[V](true)
		if err != nil {
			return nil, err
		}
		c.codec = cb
	}

	n, err := cachenotify.New(cachenotify.Options[string, V]{
		Logger:     c.log,
		Hooks:      opts.Hooks,
		KeyCodec:   codec.String{},
		ValueCodec: c.codec,
		Attachment: attachment{on: &c.listening},
	})
	if err != nil {
		return nil, err
	}
	c.n = n

	stripes := opts.Stripes
	if stripes <= 0 {
		stripes = defaultStripes
	}
	stripes = rendezvous.Pow2(stripes)
	c.stripes = make([]sync.Mutex, stripes)
	c.mask = uint64(stripes - 1)

	if opts.AsyncWorkers > 0 {
		qlen := opts.AsyncQueue
		if qlen <= 0 {
			qlen = defaultAsyncQueue
		}
		c.pump = newPump(opts.AsyncWorkers, qlen, c.log)
	}
	return c, nil
}

// Notifier returns the notifier listeners register with.
func (c *Cache[V]) Notifier() *cachenotify.Notifier[string, V] { return c.n }

// Put stores v under key and notifies CREATED or UPDATED. If a synchronous
// listener handles that event, Put returns only after the notification has
// been dispatched or ctx ends.
func (c *Cache[V]) Put(ctx context.Context, key string, v V) error {
	if c.closed.Load() {
		return ErrClosed
	}
	payload, err := c.codec.Encode(v)
	if err != nil {
		return &OpError{Op: "encode", Key: key, Err: err}
	}
	var expiresAt int64
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl).UnixNano()
	}

	mu := c.lock(key)
	old, had, err := c.load(ctx, key)
	if err != nil {
		mu.Unlock()
		return err
	}
	typ := cachenotify.Created
	if had {
		typ = cachenotify.Updated
	}
	b, err := c.await(typ, key, &v)
	if err != nil {
		mu.Unlock()
		return err
	}

	ok, err := c.p.Set(ctx, key, wire.EncodeEntry(expiresAt, payload), int64(len(payload)), c.evict)
	if err == nil && !ok {
		err = ErrRejected
	}
	if err != nil {
		mu.Unlock()
		c.withdraw(key, &v, b)
		return &OpError{Op: "put", Key: key, Err: err}
	}

	nerr := c.emit(typ, key, b != nil, func() error {
		if had {
			return c.n.NotifyUpdated(c.name, key, v, old)
		}
		return c.n.NotifyCreated(c.name, key, v)
	})
	mu.Unlock()

	if errors.Is(nerr, ErrClosed) {
		c.withdraw(key, &v, b)
		return nerr
	}
	if err := c.wait(ctx, key, &v, b); err != nil {
		return err
	}
	return nerr
}

// Remove deletes key and notifies REMOVED. Removing an absent key dispatches
// nothing but still completes a caller waiting on that removal.
func (c *Cache[V]) Remove(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}

	mu := c.lock(key)
	old, had, err := c.load(ctx, key)
	if err != nil {
		mu.Unlock()
		return false, err
	}
	b, err := c.await(cachenotify.Removed, key, nil)
	if err != nil {
		mu.Unlock()
		return false, err
	}
	var oldp *V
	if had {
		if err := c.p.Del(ctx, key); err != nil {
			mu.Unlock()
			c.withdraw(key, nil, b)
			return false, &OpError{Op: "remove", Key: key, Err: err}
		}
		oldp = &old
	}

	nerr := c.emit(cachenotify.Removed, key, b != nil, func() error {
		return c.n.NotifyRemoved(c.name, key, nil, oldp)
	})
	mu.Unlock()

	if errors.Is(nerr, ErrClosed) {
		c.withdraw(key, nil, b)
		return had, nerr
	}
	if err := c.wait(ctx, key, nil, b); err != nil {
		return had, err
	}
	return had, nerr
}

// Get returns the live value for key. An expired entry is deleted and
// reported as EXPIRED.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if c.closed.Load() {
		return zero, false, ErrClosed
	}
	e, err := c.read(ctx, key)
	if err != nil {
		return zero, false, err
	}
	switch e.state {
	case live:
		return e.v, true, nil
	case missing:
		return zero, false, nil
	}
	// stale entry: clean up under the key lock; load re-checks
	mu := c.lock(key)
	defer mu.Unlock()
	return c.load(ctx, key)
}

// Close drains pending async dispatches, then closes the notifier (and its
// closable listeners) and the provider.
func (c *Cache[V]) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if c.pump != nil {
		err = multierr.Append(err, c.pump.close())
	}
	err = multierr.Append(err, c.n.Close(ctx))
	err = multierr.Append(err, c.p.Close(ctx))
	c.log.Info("store closed", cachenotify.Fields{"cache": c.name})
	return err
}

type state uint8

const (
	missing state = iota
	live
	expired
	corrupt
)

type entry[V any] struct {
	v     V
	state state
}

func (c *Cache[V]) read(ctx context.Context, key string) (entry[V], error) {
	raw, ok, err := c.p.Get(ctx, key)
	if err != nil {
		return entry[V]{}, &OpError{Op: "get", Key: key, Err: err}
	}
	if !ok {
		return entry[V]{state: missing}, nil
	}
	expiresAt, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		return entry[V]{state: corrupt}, nil
	}
	v, err := c.codec.Decode(payload)
	if err != nil {
		return entry[V]{state: corrupt}, nil
	}
	if expiresAt != 0 && c.now().UnixNano() >= expiresAt {
		return entry[V]{v: v, state: expired}, nil
	}
	return entry[V]{v: v, state: live}, nil
}

// load returns the live value for key, deleting stale entries on the way.
// Must be called with the key's lock held.
func (c *Cache[V]) load(ctx context.Context, key string) (V, bool, error) {
	var zero V
	e, err := c.read(ctx, key)
	if err != nil {
		return zero, false, err
	}
	switch e.state {
	case live:
		return e.v, true, nil
	case missing:
		return zero, false, nil
	}

	if err := c.p.Del(ctx, key); err != nil {
		return zero, false, &OpError{Op: "remove", Key: key, Err: err}
	}
	if e.state == corrupt {
		c.log.Warn("dropped undecodable entry", cachenotify.Fields{"cache": c.name, "key": key})
		return zero, false, nil
	}
	// listener failures on expiry do not fail the operation that found it
	v := e.v
	if err := c.emit(cachenotify.Expired, key, false, func() error {
		return c.n.NotifyExpired(c.name, key, v)
	}); err != nil {
		c.log.Debug("expiry listener failed", cachenotify.Fields{"cache": c.name, "key": key, "err": err})
	}
	return zero, false, nil
}

// await queues a barrier when a synchronous listener handles typ.
func (c *Cache[V]) await(typ cachenotify.EventType, key string, v *V) (*cachenotify.Barrier, error) {
	if !c.listening.Load() || !c.n.HasSynchronousListener(typ.Capability()) {
		return nil, nil
	}
	b := cachenotify.NewBarrier()
	if err := c.n.AddWait(c.name, key, v, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Cache[V]) wait(ctx context.Context, key string, v *V, b *cachenotify.Barrier) error {
	if b == nil {
		return nil
	}
	if err := b.Wait(ctx); err != nil {
		c.withdraw(key, v, b)
		return err
	}
	return nil
}

func (c *Cache[V]) withdraw(key string, v *V, b *cachenotify.Barrier) {
	if b == nil {
		return
	}
	if err := c.n.RemoveWait(c.name, key, v, b); err != nil {
		c.log.Warn("withdraw wait failed", cachenotify.Fields{"cache": c.name, "key": key, "err": err})
	}
}

// emit runs notify inline or hands it to the pump. With no listener and no
// waiter there is nothing to do.
func (c *Cache[V]) emit(typ cachenotify.EventType, key string, waited bool, notify func() error) error {
	if !waited && !c.listening.Load() {
		return nil
	}
	if c.pump == nil {
		return notify()
	}
	if !c.pump.submit(job{cache: c.name, key: key, typ: typ, run: notify}) {
		return ErrClosed
	}
	return nil
}

func (c *Cache[V]) lock(key string) *sync.Mutex {
	mu := &c.stripes[xxhash.Sum64String(key)&c.mask]
	mu.Lock()
	return mu
}

// evictTTL returns the provider TTL for entries whose envelope expires after
// ttl. It always outlives the envelope so lazy expiry can observe the entry.
func evictTTL(ttl, grace time.Duration) time.Duration {
	if ttl <= 0 || grace < 0 {
		return 0
	}
	if grace == 0 {
		grace = defaultEvictGrace
	}
	return ttl + grace
}
