package cachenotify

import (
	"iter"
	"reflect"
)

// Capability is a bitmask of the event types a listener handles.
type Capability uint8

const (
	CapCreated Capability = 1 << Created
	CapUpdated Capability = 1 << Updated
	CapRemoved Capability = 1 << Removed
	CapExpired Capability = 1 << Expired
)

// Has reports whether all bits of o are set in c.
func (c Capability) Has(o Capability) bool { return c&o == o }

// Listener is any value implementing at least one of the capability
// interfaces below. Listeners are compared with ==, so their dynamic type
// must be comparable; pointer receivers are the usual choice.
//
// A listener that also implements io.Closer is closed by Notifier.Close.
type Listener any

// Each capability method receives a single-use sequence holding exactly one
// event. A returned error propagates to the caller of the notify method.

type CreatedListener[K, V any] interface {
	OnCreated(events iter.Seq[Event[K, V]]) error
}

type UpdatedListener[K, V any] interface {
	OnUpdated(events iter.Seq[Event[K, V]]) error
}

type RemovedListener[K, V any] interface {
	OnRemoved(events iter.Seq[Event[K, V]]) error
}

type ExpiredListener[K, V any] interface {
	OnExpired(events iter.Seq[Event[K, V]]) error
}

// Filter decides whether an event is delivered to a listener.
type Filter[K, V any] interface {
	Evaluate(e Event[K, V]) bool
}

// FilterFunc adapts an ordinary function to Filter.
type FilterFunc[K, V any] func(e Event[K, V]) bool

func (f FilterFunc[K, V]) Evaluate(e Event[K, V]) bool { return f(e) }

// ListenerFactory produces the listener instance for a registration.
type ListenerFactory interface {
	NewListener() Listener
}

// FilterFactory produces a fresh filter for each evaluation.
type FilterFactory[K, V any] interface {
	NewFilter() Filter[K, V]
}

// ListenerConfig describes one listener registration. Two configs are equal
// when their factories are identical and their flags match; Unregister removes
// every registration carrying an equal config.
type ListenerConfig[K, V any] struct {
	Listener ListenerFactory     // required
	Filter   FilterFactory[K, V] // optional; nil => every event is delivered

	// OldValueRequired keeps OldValue on UPDATED/REMOVED/EXPIRED events.
	// When false the listener never sees the previous value.
	OldValueRequired bool

	// Synchronous marks the listener as one the mutating caller waits for.
	Synchronous bool
}

type listenerOf struct{ l Listener }

func (f *listenerOf) NewListener() Listener { return f.l }

// ListenerOf returns a factory that always yields l.
// Each call returns a distinct factory, so keep the config around to Unregister it.
func ListenerOf(l Listener) ListenerFactory { return &listenerOf{l: l} }

type filterOf[K, V any] struct{ f Filter[K, V] }

func (f *filterOf[K, V]) NewFilter() Filter[K, V] { return f.f }

// FilterOf returns a factory that always yields f.
func FilterOf[K, V any](f Filter[K, V]) FilterFactory[K, V] { return &filterOf[K, V]{f: f} }

// capabilitiesOf resolves the capability set of l once, at registration.
func capabilitiesOf[K, V any](l Listener) Capability {
	var c Capability
	if _, ok := l.(CreatedListener[K, V]); ok {
		c |= CapCreated
	}
	if _, ok := l.(UpdatedListener[K, V]); ok {
		c |= CapUpdated
	}
	if _, ok := l.(RemovedListener[K, V]); ok {
		c |= CapRemoved
	}
	if _, ok := l.(ExpiredListener[K, V]); ok {
		c |= CapExpired
	}
	return c
}

// isComparable reports whether v can be used with == without panicking.
func isComparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).Comparable()
}

func (cfg ListenerConfig[K, V]) isComparable() bool {
	return isComparable(cfg.Listener) && isComparable(cfg.Filter)
}
