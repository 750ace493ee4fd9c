package cachenotify

// Hooks lightweight callbacks for high-signal notification events.
// Implementations MUST be cheap and non-blocking.
// The notifier calls them on the mutation path.
type Hooks interface {
	// A listener callback returned an error; the error is also returned to the
	// caller of the notify method.
	ListenerFailed(cache string, t EventType, err error)

	// A removal arrived without a previous value and was not dispatched.
	RemovalSuppressed(cache string)

	// A release found no barrier waiting for that mutation.
	ReleaseUnmatched(cache string)

	// A waiter withdrew its barrier before it was released (timeout/cancel).
	WaitWithdrawn(cache string)

	// A listener's Close failed during notifier teardown.
	ListenerCloseFailed(err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ListenerFailed(string, EventType, error) {}
func (NopHooks) RemovalSuppressed(string)                {}
func (NopHooks) ReleaseUnmatched(string)                 {}
func (NopHooks) WaitWithdrawn(string)                    {}
func (NopHooks) ListenerCloseFailed(error)               {}
