// Package prefixed implements stores that isolate the keys of a namespace.
//
// Every key is hashed with the namespace so that two contracts writing the
// same key never collide.
package prefixed

import (
	"encoding/binary"

	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/crypto"
)

var hashFactory crypto.HashFactory = crypto.NewSha256Factory()

type readable struct {
	store.Readable
	prefix []byte
}

type writable struct {
	store.Writable
	prefix []byte
}

type snapshot struct {
	*writable
	*readable
}

// NewSnapshot creates a new prefixed snapshot.
func NewSnapshot(prefix string, snap store.Snapshot) store.Snapshot {
	p := []byte(prefix)
	return &snapshot{
		&writable{snap, p},
		&readable{snap, p},
	}
}

// NewReadable creates a new prefixed readable store.
func NewReadable(prefix string, r store.Readable) store.Readable {
	return &readable{r, []byte(prefix)}
}

// Get implements store.Readable.
func (s *readable) Get(key []byte) ([]byte, error) {
	return s.Readable.Get(NewPrefixedKey(s.prefix, key))
}

// Set implements store.Writable.
func (s *writable) Set(key []byte, value []byte) error {
	return s.Writable.Set(NewPrefixedKey(s.prefix, key), value)
}

// Delete implements store.Writable.
func (s *writable) Delete(key []byte) error {
	return s.Writable.Delete(NewPrefixedKey(s.prefix, key))
}

// NewPrefixedKey creates a 256 bits key from a prefix and a base key. Both
// parts are length-prefixed so that the concatenation is not ambiguous.
func NewPrefixedKey(prefix, key []byte) []byte {
	h := hashFactory.New()

	buffer := make([]byte, 0, 4+len(prefix)+len(key))
	buffer = binary.LittleEndian.AppendUint16(buffer, uint16(len(prefix)))
	buffer = append(buffer, prefix...)
	buffer = binary.LittleEndian.AppendUint16(buffer, uint16(len(key)))
	buffer = append(buffer, key...)

	// A hash never returns an error on write.
	h.Write(buffer)

	return h.Sum(nil)
}
