// Package codec converts values to bytes and back.
//
// The notifier uses codecs to build the identity of a mutation (cache, key,
// value) for rendezvous matching, so an encoding must be deterministic: equal
// values must always produce equal bytes. Every codec in this package is
// deterministic for the value shapes it documents.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
