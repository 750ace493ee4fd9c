package cachenotify

import (
	"context"
	"io"
	"sync/atomic"

	"go.uber.org/multierr"

	c "github.com/unkn0wn-root/cachenotify/codec"
	"github.com/unkn0wn-root/cachenotify/internal/rendezvous"
	"github.com/unkn0wn-root/cachenotify/internal/wire"
)

// Attachment lets the owning cache engine install its mutation hook only while
// at least one listener is registered. Attach and Detach are called with the
// registry write lock held and must not call back into the Notifier.
type Attachment interface {
	Attach() // first listener registered
	Detach() // last listener removed
}

// Options tune a Notifier. All fields are optional.
type Options[K, V any] struct {
	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// Codecs used to identify a mutation (cache, key, value) for rendezvous.
	// They must be deterministic. nil => CBOR in core deterministic mode.
	KeyCodec   c.Codec[K]
	ValueCodec c.Codec[V]

	RendezvousShards int // 0 => 32; rounded up to a power of two

	Attachment Attachment
}

// Notifier dispatches entry events of one cache to its registered listeners
// and coordinates callers waiting for synchronous listeners.
// It is safe for concurrent use.
type Notifier[K, V any] struct {
	reg   registry[K, V]
	waits *rendezvous.Coordinator[*Barrier]

	// waiters added and not yet released or withdrawn; lets release skip
	// encoding the source when nobody waits.
	outstanding atomic.Int64

	keys  c.Codec[K]
	vals  c.Codec[V]
	log   Logger
	hooks Hooks
}

func New[K, V any](opts Options[K, V]) (*Notifier[K, V], error) {
	n := &Notifier[K, V]{
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
		hooks: coalesce[Hooks](opts.Hooks, NopHooks{}),
		keys:  opts.KeyCodec,
		vals:  opts.ValueCodec,
	}
	n.reg.attach = opts.Attachment

	if n.keys == nil {
		kc, err := c.NewCBOR[K](true)
		if err != nil {
			return nil, err
		}
		n.keys = kc
	}
	if n.vals == nil {
		vc, err := c.NewCBOR[V](true)
		if err != nil {
			return nil, err
		}
		n.vals = vc
	}

	shards := coalesce(opts.RendezvousShards, defaultRendezvousShards)
	n.waits = rendezvous.New[*Barrier](rendezvous.Pow2(shards))
	return n, nil
}

// Register adds the listener produced by cfg.Listener to the list of every
// capability it implements. Unless allowDuplicate is set, a capability list
// that already holds an equal listener is left unchanged. added reports
// whether the listener joined at least one list.
func (n *Notifier[K, V]) Register(cfg ListenerConfig[K, V], allowDuplicate bool) (added bool, err error) {
	added, err = n.reg.register(cfg, allowDuplicate)
	if err != nil {
		return false, err
	}
	if added {
		n.log.Info("listener registered", Fields{
			"synchronous":        cfg.Synchronous,
			"old_value_required": cfg.OldValueRequired,
			"filtered":           cfg.Filter != nil,
		})
	}
	return added, nil
}

// Unregister removes every registration whose configuration equals cfg and
// returns how many listeners were removed.
func (n *Notifier[K, V]) Unregister(cfg ListenerConfig[K, V]) int {
	removed := n.reg.unregister(cfg)
	if removed > 0 {
		n.log.Info("listener unregistered", Fields{"removed": removed})
	}
	return removed
}

// HasSynchronousListener reports whether any registered listener handling
// capability cp is synchronous. The engine uses it to skip barrier setup.
func (n *Notifier[K, V]) HasSynchronousListener(cp Capability) bool {
	return n.reg.hasSynchronous(cp)
}

// Listeners returns the number of registered listener instances.
func (n *Notifier[K, V]) Listeners() int { return len(n.reg.configs()) }

// AddWait queues b to be signaled when the notification for (cache, key, value)
// completes. value nil stands for "no value", which is what removals release.
// Call it before performing the mutation.
func (n *Notifier[K, V]) AddWait(cache string, key K, value *V, b *Barrier) error {
	src, err := n.source(cache, key, value)
	if err != nil {
		return &SourceError{Cache: cache, Op: "add_wait", Err: err}
	}
	n.outstanding.Add(1)
	n.waits.Add(src, b)
	return nil
}

// RemoveWait withdraws b without signaling it, e.g. after the caller gave up
// waiting. It is a no-op if b is not queued.
func (n *Notifier[K, V]) RemoveWait(cache string, key K, value *V, b *Barrier) error {
	src, err := n.source(cache, key, value)
	if err != nil {
		return &SourceError{Cache: cache, Op: "remove_wait", Err: err}
	}
	if n.waits.Remove(src, b) {
		n.outstanding.Add(-1)
		n.hooks.WaitWithdrawn(cache)
	}
	return nil
}

// Pending returns the number of queued barriers.
func (n *Notifier[K, V]) Pending() int { return n.waits.Pending() }

// NotifyCreated delivers a CREATED event and then releases the oldest waiter
// for (cache, key, value), even if a listener fails or panics.
func (n *Notifier[K, V]) NotifyCreated(cache string, key K, value V) error {
	defer n.release(cache, key, &value)
	return n.dispatch(Event[K, V]{Type: Created, Cache: cache, Key: key, Value: value})
}

// NotifyUpdated delivers an UPDATED event carrying both values and then
// releases the oldest waiter for (cache, key, value).
func (n *Notifier[K, V]) NotifyUpdated(cache string, key K, value, old V) error {
	defer n.release(cache, key, &value)
	return n.dispatch(Event[K, V]{
		Type:              Updated,
		Cache:             cache,
		Key:               key,
		Value:             value,
		OldValue:          old,
		OldValueAvailable: true,
	})
}

// NotifyRemoved delivers a REMOVED event. A removal with no previous value
// (old == nil) is not an observable removal: no listener runs, but the waiter
// for (cache, key, nil) is still released.
func (n *Notifier[K, V]) NotifyRemoved(cache string, key K, newState, old *V) error {
	if old == nil {
		defer n.release(cache, key, nil)
		n.hooks.RemovalSuppressed(cache)
		return nil
	}
	defer n.release(cache, key, newState)

	e := Event[K, V]{
		Type:              Removed,
		Cache:             cache,
		Key:               key,
		OldValue:          *old,
		OldValueAvailable: true,
	}
	if newState != nil {
		e.Value = *newState
	}
	return n.dispatch(e)
}

// NotifyExpired delivers an EXPIRED event. Expiry is driven by the engine and
// nobody waits for it, so no rendezvous is released.
func (n *Notifier[K, V]) NotifyExpired(cache string, key K, value V) error {
	return n.dispatch(Event[K, V]{Type: Expired, Cache: cache, Key: key, Value: value})
}

// Close closes every registered listener that implements io.Closer and
// refuses further registrations. Every drained listener is closed even when
// ctx is already done; ctx.Err() is then reported alongside close failures.
// Queued barriers are left to their owners.
func (n *Notifier[K, V]) Close(ctx context.Context) error {
	listeners := n.reg.drain()
	var errs error
	for _, l := range listeners {
		cl, ok := l.(io.Closer)
		if !ok {
			continue
		}
		if err := cl.Close(); err != nil {
			n.hooks.ListenerCloseFailed(err)
			errs = multierr.Append(errs, err)
		}
	}
	errs = multierr.Append(errs, ctx.Err())
	n.log.Info("notifier closed", Fields{"listeners": len(listeners), "pending_waits": n.waits.Pending()})
	return errs
}

func (n *Notifier[K, V]) dispatch(e Event[K, V]) error {
	slots := n.reg.listeners(e.Type.Capability())
	if len(slots) == 0 {
		return nil
	}
	n.log.Debug("received event", Fields{"cache": e.Cache, "type": e.Type.String(), "key": e.Key})

	for _, s := range slots {
		cfg, ok := n.reg.lookup(s.l)
		if !ok {
			continue // unregistered after the snapshot was taken
		}
		view, ok := applicableView(e, cfg)
		if !ok {
			continue
		}
		if err := s.call(once(view)); err != nil {
			n.hooks.ListenerFailed(e.Cache, e.Type, err)
			n.log.Debug("listener failed", Fields{"cache": e.Cache, "type": e.Type.String(), "err": err})
			return err
		}
	}
	return nil
}

func (n *Notifier[K, V]) release(cache string, key K, value *V) {
	if n.outstanding.Load() == 0 {
		return
	}
	src, err := n.source(cache, key, value)
	if err != nil {
		n.log.Warn("rendezvous release skipped", Fields{"cache": cache, "err": &SourceError{Cache: cache, Op: "release", Err: err}})
		return
	}
	if n.waits.Release(src) {
		n.outstanding.Add(-1)
		return
	}
	n.hooks.ReleaseUnmatched(cache)
}

func (n *Notifier[K, V]) source(cache string, key K, value *V) (string, error) {
	kb, err := n.keys.Encode(key)
	if err != nil {
		return "", err
	}
	if value == nil {
		return wire.EncodeSource(cache, kb, nil, false), nil
	}
	vb, err := n.vals.Encode(*value)
	if err != nil {
		return "", err
	}
	return wire.EncodeSource(cache, kb, vb, true), nil
}
