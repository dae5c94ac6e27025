package types

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/internal/testing/fake"
	"go.dedis.ch/ballot/serde"
)

func init() {
	RegisterBlockFormat(fake.GoodFormat, fake.Format{Msg: Block{}})
	RegisterBlockFormat(fake.BadFormat, fake.NewBadFormat())
	RegisterBlockFormat(serde.Format("BadType"), fake.Format{Msg: fake.Message{}})
}

func TestDigest_String(t *testing.T) {
	digest := Digest{0xaa, 0xbb}

	require.Equal(t, "0xaabb0000", digest.String())
}

func TestNewBlock(t *testing.T) {
	block, err := NewBlock(fakeData{},
		WithIndex(2),
		WithTimestamp(42),
		WithPrevious(Digest{1}),
		WithStateHash(Digest{2}))
	require.NoError(t, err)
	require.Equal(t, uint64(2), block.GetIndex())
	require.Equal(t, uint64(42), block.GetTimestamp())
	require.Equal(t, Digest{1}, block.GetPrevious())
	require.Equal(t, Digest{2}, block.GetStateHash())
	require.Equal(t, fakeData{}, block.GetData())
	require.NotEqual(t, Digest{}, block.GetHash())

	same, err := NewBlock(fakeData{},
		WithIndex(2),
		WithTimestamp(42),
		WithPrevious(Digest{1}),
		WithStateHash(Digest{2}))
	require.NoError(t, err)
	require.Equal(t, block.GetHash(), same.GetHash())

	other, err := NewBlock(fakeData{}, WithIndex(3), WithTimestamp(42))
	require.NoError(t, err)
	require.NotEqual(t, block.GetHash(), other.GetHash())

	_, err = NewBlock(fakeData{}, WithHashFactory(fake.NewBadHashFactory()))
	require.EqualError(t, err, fake.Err("failed to fingerprint: couldn't write header"))

	_, err = NewBlock(fakeData{err: fake.GetError()})
	require.EqualError(t, err, fake.Err("failed to fingerprint: couldn't fingerprint data"))
}

func TestBlock_Serialize(t *testing.T) {
	block := Block{}

	data, err := block.Serialize(fake.NewContext())
	require.NoError(t, err)
	require.Equal(t, fake.GetFakeFormatValue(), data)

	_, err = block.Serialize(fake.NewBadContext())
	require.EqualError(t, err, fake.Err("encoding failed"))
}

func TestBlockFactory_Deserialize(t *testing.T) {
	fac := NewBlockFactory(nil)

	msg, err := fac.Deserialize(fake.NewContext(), nil)
	require.NoError(t, err)
	require.Equal(t, Block{}, msg)

	_, err = fac.BlockOf(fake.NewBadContext(), nil)
	require.EqualError(t, err, fake.Err("decoding failed"))

	_, err = fac.BlockOf(fake.NewContextWithFormat(serde.Format("BadType")), nil)
	require.EqualError(t, err, "invalid block of type 'fake.Message'")
}

func TestBlock_VerifyLink(t *testing.T) {
	genesis, err := NewBlock(fakeData{}, WithTimestamp(10))
	require.NoError(t, err)

	next, err := NewBlock(fakeData{},
		WithIndex(1),
		WithTimestamp(10),
		WithPrevious(genesis.GetHash()))
	require.NoError(t, err)
	require.NoError(t, next.VerifyLink(genesis))

	err = genesis.VerifyLink(next)
	require.EqualError(t, err, "index 0 does not follow 1")

	bad, err := NewBlock(fakeData{}, WithIndex(1), WithTimestamp(10))
	require.NoError(t, err)

	err = bad.VerifyLink(genesis)
	require.Error(t, err)
	require.Regexp(t, "^previous hash 0x00000000 != 0x[0-9a-f]{8}$", err.Error())

	bad, err = NewBlock(fakeData{},
		WithIndex(1),
		WithTimestamp(9),
		WithPrevious(genesis.GetHash()))
	require.NoError(t, err)

	err = bad.VerifyLink(genesis)
	require.EqualError(t, err, "timestamp 9 is before 10")
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeData struct {
	validation.Data

	err error
}

func (d fakeData) Fingerprint(w io.Writer) error {
	if d.err != nil {
		return d.err
	}

	_, err := w.Write([]byte("fake data"))
	return err
}
