package cachenotify

// applicableView returns the view of e that a listener registered with cfg may
// observe, or false when the listener's filter rejects the event.
// A new filter is obtained from the factory for every evaluation.
func applicableView[K, V any](e Event[K, V], cfg ListenerConfig[K, V]) (Event[K, V], bool) {
	if cfg.Filter != nil {
		if f := cfg.Filter.NewFilter(); f != nil && !f.Evaluate(e) {
			return Event[K, V]{}, false
		}
	}
	return launder(e, cfg.OldValueRequired), true
}

// launder withholds the previous value from listeners that did not ask for it.
// CREATED events carry no previous value and pass through.
func launder[K, V any](e Event[K, V], oldValueRequired bool) Event[K, V] {
	switch e.Type {
	case Updated, Removed, Expired:
		if oldValueRequired {
			return e
		}
		var zero V
		e.OldValue = zero
		e.OldValueAvailable = false
		return e
	default:
		return e
	}
}
