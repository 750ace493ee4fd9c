package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
)

const (
	version    byte = 1
	kindEntry  byte = 1
	kindSource byte = 2

	valueAbsent  byte = 0
	valuePresent byte = 1
)

var (
	ErrCorrupt = errors.New("cachenotify: corrupt entry")
	magic4     = [...]byte{'C', 'N', 'F', 'Y'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry: magic(4) | ver(1) | kind(1=entry) | expiresAt(i64 be, unix nanos; 0 = never) | vlen(u32 be) | payload(vlen)
func EncodeEntry(expiresAt int64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(expiresAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeEntry rejects anything but an exact entry frame (no trailing bytes).
func DecodeEntry(b []byte) (expiresAt int64, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return 0, nil, ErrCorrupt
	}

	off := 6
	expiresAt = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return 0, nil, ErrCorrupt
	}
	return expiresAt, b[off:], nil
}

// Source identifies one mutation for rendezvous purposes:
//
//	ver(1) | kind(2=source) | clen(u32 be) | cache | klen(u32 be) | key | present(1) [| vlen(u32 be) | value]
//
// Every field is length-prefixed, so two sources encode equal iff their
// cache names, key bytes, and value bytes (or value absence) are equal.
// The result is used as a map key only and is never persisted.
func EncodeSource(cache string, key []byte, value []byte, hasValue bool) string {
	n := 1 + 1 + 4 + len(cache) + 4 + len(key) + 1
	if hasValue {
		n += 4 + len(value)
	}

	var sb strings.Builder
	sb.Grow(n)
	sb.WriteByte(version)
	sb.WriteByte(kindSource)

	var u4 [4]byte
	writeLen := func(l int) {
		binary.BigEndian.PutUint32(u4[:], uint32(l))
		sb.Write(u4[:])
	}

	writeLen(len(cache))
	sb.WriteString(cache)
	writeLen(len(key))
	sb.Write(key)

	if !hasValue {
		sb.WriteByte(valueAbsent)
		return sb.String()
	}
	sb.WriteByte(valuePresent)
	writeLen(len(value))
	sb.Write(value)
	return sb.String()
}
