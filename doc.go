// Package cachenotify dispatches cache entry events (created, updated,
// removed, expired) to registered listeners and lets a mutating caller wait
// until synchronous listeners have seen its mutation.
//
// Components:
//   - Registry: one copy-on-write list per capability, read without locks.
//   - Shaping: each listener gets its own view of an event; a filter may drop
//     it, and the previous value is withheld unless the listener asked for it.
//   - Dispatch: Notify* methods invoke listeners in registration order and
//     always release the matching waiter afterwards (EXPIRED excepted).
//   - Rendezvous: FIFO queues of one-shot Barriers keyed by (cache, key, value).
//
// Synchronous pattern (engine side):
//
//	if n.HasSynchronousListener(cachenotify.CapCreated) {
//	    b := cachenotify.NewBarrier()
//	    _ = n.AddWait("users", k, &v, b)   // before the write
//	    write(k, v)                        // eventually calls n.NotifyCreated("users", k, v)
//	    if err := b.Wait(ctx); err != nil {
//	        _ = n.RemoveWait("users", k, &v, b)
//	    }
//	}
//
// Removals of absent entries release waiters registered with a nil value.
package cachenotify
