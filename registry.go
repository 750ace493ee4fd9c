package cachenotify

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/cachenotify/internal/cow"
)

const numCapabilities = 4

// slot is one entry of a capability list. call is the capability method bound
// at registration so dispatch never re-asserts the listener type.
type slot[K, V any] struct {
	l    Listener
	call func(iter.Seq[Event[K, V]]) error
}

type registration[K, V any] struct {
	cfg  ListenerConfig[K, V]
	caps Capability
}

// registry keeps one copy-on-write list per capability plus the configuration
// of every registered listener. Readers never lock; writers serialize on mu so
// the lists and the config map change together.
type registry[K, V any] struct {
	mu     sync.Mutex
	closed bool

	lists [numCapabilities]cow.List[slot[K, V]]
	cfgs  atomic.Pointer[map[Listener]registration[K, V]]

	attach Attachment
}

func (r *registry[K, V]) configs() map[Listener]registration[K, V] {
	if p := r.cfgs.Load(); p != nil {
		return *p
	}
	return nil
}

// lookup returns the configuration stored for l from the current snapshot.
func (r *registry[K, V]) lookup(l Listener) (ListenerConfig[K, V], bool) {
	reg, ok := r.configs()[l]
	return reg.cfg, ok
}

func (r *registry[K, V]) listeners(c Capability) []slot[K, V] {
	for i := 0; i < numCapabilities; i++ {
		if c == Capability(1)<<i {
			return r.lists[i].Snapshot()
		}
	}
	return nil
}

// publish stores next as the new config snapshot. Caller holds mu.
func (r *registry[K, V]) publish(next map[Listener]registration[K, V]) {
	prev := len(r.configs())
	r.cfgs.Store(&next)
	if r.attach == nil {
		return
	}
	switch {
	case prev == 0 && len(next) > 0:
		r.attach.Attach()
	case prev > 0 && len(next) == 0:
		r.attach.Detach()
	}
}

func (r *registry[K, V]) register(cfg ListenerConfig[K, V], allowDuplicate bool) (bool, error) {
	if cfg.Listener == nil {
		return false, ErrNilFactory
	}
	if !cfg.isComparable() {
		return false, ErrNotComparable
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ErrClosed
	}

	l := cfg.Listener.NewListener()
	if l == nil {
		return false, ErrNilListener
	}
	if !isComparable(l) {
		return false, ErrNotComparable
	}
	caps := capabilitiesOf[K, V](l)
	if caps == 0 {
		return false, ErrNoCapability
	}

	var present func(slot[K, V]) bool
	if !allowDuplicate {
		present = func(s slot[K, V]) bool { return s.l == l }
	}

	added := false
	for i, call := range bindCapabilities[K, V](l, caps) {
		if call == nil {
			continue
		}
		if r.lists[i].AppendIf(slot[K, V]{l: l, call: call}, present) {
			added = true
		}
	}
	if !added {
		return false, nil
	}

	cur := r.configs()
	next := make(map[Listener]registration[K, V], len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[l] = registration[K, V]{cfg: cfg, caps: caps}
	r.publish(next)
	return true, nil
}

// unregister removes every listener whose stored configuration equals cfg.
func (r *registry[K, V]) unregister(cfg ListenerConfig[K, V]) int {
	if !cfg.isComparable() {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.configs()
	var victims []Listener
	for l, reg := range cur {
		if reg.cfg == cfg {
			victims = append(victims, l)
		}
	}
	if len(victims) == 0 {
		return 0
	}

	next := make(map[Listener]registration[K, V], len(cur))
	for k, v := range cur {
		next[k] = v
	}
	for _, l := range victims {
		caps := next[l].caps
		for i := 0; i < numCapabilities; i++ {
			if caps.Has(Capability(1) << i) {
				r.lists[i].RemoveFunc(func(s slot[K, V]) bool { return s.l == l })
			}
		}
		delete(next, l)
	}
	r.publish(next)
	return len(victims)
}

func (r *registry[K, V]) hasSynchronous(c Capability) bool {
	for _, reg := range r.configs() {
		if reg.cfg.Synchronous && reg.caps.Has(c) {
			return true
		}
	}
	return false
}

// drain empties the registry, refuses further registrations and returns the
// listeners that were registered.
func (r *registry[K, V]) drain() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true

	cur := r.configs()
	out := make([]Listener, 0, len(cur))
	for l := range cur {
		out = append(out, l)
	}
	for i := range r.lists {
		r.lists[i].RemoveFunc(func(slot[K, V]) bool { return true })
	}
	r.publish(map[Listener]registration[K, V]{})
	return out
}

// bindCapabilities returns the bound capability methods of l indexed by event type.
func bindCapabilities[K, V any](l Listener, caps Capability) [numCapabilities]func(iter.Seq[Event[K, V]]) error {
	var out [numCapabilities]func(iter.Seq[Event[K, V]]) error
	if caps.Has(CapCreated) {
		out[Created] = l.(CreatedListener[K, V]).OnCreated
	}
	if caps.Has(CapUpdated) {
		out[Updated] = l.(UpdatedListener[K, V]).OnUpdated
	}
	if caps.Has(CapRemoved) {
		out[Removed] = l.(RemovedListener[K, V]).OnRemoved
	}
	if caps.Has(CapExpired) {
		out[Expired] = l.(ExpiredListener[K, V]).OnExpired
	}
	return out
}
