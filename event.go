package cachenotify

import "iter"

// EventType identifies the kind of mutation an Event describes.
type EventType uint8

const (
	Created EventType = iota
	Updated
	Removed
	Expired
)

func (t EventType) String() string {
	switch t {
	case Created:
		return "CREATED"
	case Updated:
		return "UPDATED"
	case Removed:
		return "REMOVED"
	case Expired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Capability returns the listener capability that receives events of type t.
func (t EventType) Capability() Capability {
	return Capability(1) << t
}

// Event is one entry mutation as seen by a listener. Events are values; each
// listener receives its own copy, possibly with the old value withheld.
type Event[K, V any] struct {
	Type  EventType
	Cache string
	Key   K

	// Value is the new value (CREATED, UPDATED), the post-removal state
	// (REMOVED; usually zero) or the value that expired (EXPIRED).
	Value V

	// OldValue is meaningful only when OldValueAvailable is true.
	OldValue          V
	OldValueAvailable bool
}

// once returns a single-element sequence that yields e on the first range only.
// A second range over the same sequence yields nothing.
func once[K, V any](e Event[K, V]) iter.Seq[Event[K, V]] {
	used := false
	return func(yield func(Event[K, V]) bool) {
		if used {
			return
		}
		used = true
		yield(e)
	}
}
