// Package provider defines the byte store behind the store package.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). The store frames every value in its
// own entry envelope carrying the absolute expiry, so a provider without
// per-entry TTLs still expires entries correctly.
//
// The TTL given to Set always outlives the envelope expiry; it only reclaims
// entries that were never read again after expiring. Capacity eviction is
// allowed, but an entry dropped before its envelope expiry is reported as
// missing, not expired.
//
// Writes must be visible to the next Get from the same goroutine; stores that
// buffer writes (ristretto) must flush before Set returns.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (0 = no expiry). May ignore cost if
	// unsupported. Returns ok=false when the store rejected the write.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
