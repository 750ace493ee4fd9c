package store

import (
	"errors"
	"fmt"
)

var (
	ErrClosed      = errors.New("store: closed")
	ErrNoName      = errors.New("store: cache name is required")
	ErrNilProvider = errors.New("store: provider is required")

	// ErrRejected is returned when the provider refused a write.
	ErrRejected = errors.New("store: write rejected by provider")
)

// OpError wraps a provider or codec failure with the operation and key.
type OpError struct {
	Op  string // "get", "put", "remove", "encode", "decode"
	Key string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
