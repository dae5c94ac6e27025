package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/internal/testing/fake"
)

func TestReadable_Get(t *testing.T) {
	db := makeDB(t)

	r := NewReadable(db, []byte("state"))

	value, err := r.Get([]byte("ping"))
	require.NoError(t, err)
	require.Nil(t, value)

	err = db.Update(func(tx WritableTx) error {
		b, err := tx.GetBucketOrCreate([]byte("state"))
		require.NoError(t, err)

		return b.Set([]byte("ping"), []byte("pong"))
	})
	require.NoError(t, err)

	value, err = r.Get([]byte("ping"))
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), value)

	require.NoError(t, db.Close())

	_, err = r.Get([]byte("ping"))
	require.EqualError(t, err, "failed to read db: database not open")
}

func TestViewReadable(t *testing.T) {
	db := makeDB(t)

	err := ViewReadable(db, []byte("state"), func(r store.Readable) error {
		value, err := r.Get([]byte("ping"))
		require.NoError(t, err)
		require.Nil(t, value)

		return nil
	})
	require.NoError(t, err)

	err = db.Update(func(tx WritableTx) error {
		b, err := tx.GetBucketOrCreate([]byte("state"))
		require.NoError(t, err)

		require.NoError(t, b.Set([]byte("a"), []byte("1")))
		return b.Set([]byte("b"), []byte("1"))
	})
	require.NoError(t, err)

	// Every read of the function happens in the same transaction.
	counter := &viewCounter{DB: db}

	err = ViewReadable(counter, []byte("state"), func(r store.Readable) error {
		a, err := r.Get([]byte("a"))
		require.NoError(t, err)

		b, err := r.Get([]byte("b"))
		require.NoError(t, err)
		require.Equal(t, a, b)

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, counter.views)

	r := NewReadable(counter, []byte("state"))
	r.Get([]byte("a"))
	r.Get([]byte("b"))
	require.Equal(t, 3, counter.views)

	value, err := NewReadable(db, []byte("state")).Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)

	err = ViewReadable(db, []byte("state"), func(store.Readable) error {
		return fake.GetError()
	})
	require.Equal(t, fake.GetError(), err)
}

func TestBucketSnapshot(t *testing.T) {
	db := makeDB(t)

	err := db.Update(func(tx WritableTx) error {
		b, err := tx.GetBucketOrCreate([]byte("state"))
		require.NoError(t, err)

		snap := NewBucketSnapshot(b)

		require.NoError(t, snap.Set([]byte("ping"), []byte("pong")))

		value, err := snap.Get([]byte("ping"))
		require.NoError(t, err)
		require.Equal(t, []byte("pong"), value)

		require.NoError(t, snap.Delete([]byte("ping")))

		value, err = snap.Get([]byte("ping"))
		require.NoError(t, err)
		require.Nil(t, value)

		return nil
	})
	require.NoError(t, err)
}

// viewCounter counts the read transactions opened on the database.
type viewCounter struct {
	DB

	views int
}

func (db *viewCounter) View(fn func(ReadableTx) error) error {
	db.views++
	return db.DB.View(fn)
}
