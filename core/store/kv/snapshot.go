package kv

import (
	"go.dedis.ch/ballot/core/store"
	"golang.org/x/xerrors"
)

// readable is a read-only view of a bucket of the database. Each read is done
// in its own transaction, so the view always reflects the committed state.
//
// - implements store.Readable
type readable struct {
	db     DB
	bucket []byte
}

// NewReadable returns a store that reads the keys of the bucket of the
// database. A missing bucket is read as an empty store.
func NewReadable(db DB, bucket []byte) store.Readable {
	return readable{
		db:     db,
		bucket: bucket,
	}
}

// Get implements store.Readable. It returns a copy of the value of the key, or
// nil if it does not exist.
func (r readable) Get(key []byte) ([]byte, error) {
	var value []byte

	err := r.db.View(func(tx ReadableTx) error {
		bucket := tx.GetBucket(r.bucket)
		if bucket == nil {
			return nil
		}

		raw := bucket.Get(key)
		if raw != nil {
			value = append([]byte{}, raw...)
		}

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read db: %v", err)
	}

	return value, nil
}

// ViewReadable runs the function with a read-only store of the bucket bound to
// a single transaction, so that every key is read from the same committed
// state. The store must not be used after the function returns. The error of
// the function is returned as is.
func ViewReadable(db DB, bucket []byte, fn func(store.Readable) error) error {
	return db.View(func(tx ReadableTx) error {
		b := tx.GetBucket(bucket)
		if b == nil {
			return fn(emptyReadable{})
		}

		return fn(bucketSnapshot{bucket: b})
	})
}

// emptyReadable is the store of a bucket that does not exist yet.
//
// - implements store.Readable
type emptyReadable struct{}

// Get implements store.Readable. It always returns nil.
func (emptyReadable) Get([]byte) ([]byte, error) {
	return nil, nil
}

// bucketSnapshot is the adapter of a bucket of a writable transaction to the
// store interfaces.
//
// - implements store.Snapshot
type bucketSnapshot struct {
	bucket Bucket
}

// NewBucketSnapshot returns a snapshot that reads and writes the bucket. It
// must only be used during the transaction the bucket belongs to.
func NewBucketSnapshot(bucket Bucket) store.Snapshot {
	return bucketSnapshot{bucket: bucket}
}

// Get implements store.Readable. It returns a copy of the value of the key.
func (s bucketSnapshot) Get(key []byte) ([]byte, error) {
	raw := s.bucket.Get(key)
	if raw == nil {
		return nil, nil
	}

	return append([]byte{}, raw...), nil
}

// Set implements store.Writable.
func (s bucketSnapshot) Set(key, value []byte) error {
	return s.bucket.Set(key, value)
}

// Delete implements store.Writable.
func (s bucketSnapshot) Delete(key []byte) error {
	return s.bucket.Delete(key)
}
