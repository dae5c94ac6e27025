// Package mem implements a layered in-memory snapshot.
//
// A snapshot keeps only its own updates and falls through to its parent for
// the other keys. It is used to stage the execution of a transaction on top of
// the committed state, and to throw the updates away when it is refused.
package mem

import (
	"encoding/binary"
	"io"
	"sort"

	"go.dedis.ch/ballot/core/store"
	"golang.org/x/xerrors"
)

type item struct {
	value   []byte
	deleted bool
}

// Snapshot is an in-memory layer of updates on top of a parent store.
//
// - implements store.Snapshot
type Snapshot struct {
	parent store.Readable
	store  map[string]item
}

// NewSnapshot returns a new empty layer on top of the parent. The parent can be
// nil, in which case the layer is the whole store.
func NewSnapshot(parent store.Readable) *Snapshot {
	return &Snapshot{
		parent: parent,
		store:  make(map[string]item),
	}
}

// Get implements store.Readable. It returns the value of the key, looking up
// in the parent if the layer does not know it.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	it, found := s.store[string(key)]
	if found {
		if it.deleted {
			return nil, nil
		}

		return it.value, nil
	}

	if s.parent == nil {
		return nil, nil
	}

	value, err := s.parent.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("parent failed: %v", err)
	}

	return value, nil
}

// Set implements store.Writable. It records the value for the key in the
// layer.
func (s *Snapshot) Set(key, value []byte) error {
	s.store[string(key)] = item{value: append([]byte{}, value...)}

	return nil
}

// Delete implements store.Writable. It records the deletion of the key in the
// layer.
func (s *Snapshot) Delete(key []byte) error {
	s.store[string(key)] = item{deleted: true}

	return nil
}

// Len returns the number of updates in the layer.
func (s *Snapshot) Len() int {
	return len(s.store)
}

// Stage creates a child layer and runs the callback with it. The child is
// returned only if the callback succeeds, and the current layer is never
// modified.
func (s *Snapshot) Stage(fn func(store.Snapshot) error) (*Snapshot, error) {
	child := NewSnapshot(s)

	err := fn(child)
	if err != nil {
		return nil, err
	}

	return child, nil
}

// Apply writes the updates of the layer to the destination in the order of the
// keys.
func (s *Snapshot) Apply(dst store.Writable) error {
	for _, key := range s.keys() {
		it := s.store[key]

		var err error
		if it.deleted {
			err = dst.Delete([]byte(key))
		} else {
			err = dst.Set([]byte(key), it.value)
		}

		if err != nil {
			return xerrors.Errorf("failed to apply key %#x: %v", key, err)
		}
	}

	return nil
}

// Fingerprint writes a deterministic binary representation of the updates of
// the layer.
func (s *Snapshot) Fingerprint(w io.Writer) error {
	for _, key := range s.keys() {
		it := s.store[key]

		flag := byte(0)
		if it.deleted {
			flag = 1
		}

		buffer := make([]byte, 0, 9+len(key)+len(it.value))
		buffer = binary.LittleEndian.AppendUint32(buffer, uint32(len(key)))
		buffer = append(buffer, key...)
		buffer = append(buffer, flag)
		buffer = binary.LittleEndian.AppendUint32(buffer, uint32(len(it.value)))
		buffer = append(buffer, it.value...)

		_, err := w.Write(buffer)
		if err != nil {
			return xerrors.Errorf("couldn't write key: %v", err)
		}
	}

	return nil
}

func (s *Snapshot) keys() []string {
	keys := make([]string, 0, len(s.store))
	for key := range s.store {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
