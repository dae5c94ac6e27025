package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/registry"
	"golang.org/x/xerrors"
)

// DigestSize is the size of the hashes of the blocks.
const DigestSize = 32

var blockFormats = registry.NewSimpleRegistry()

// RegisterBlockFormat registers the engine for the provided format.
func RegisterBlockFormat(f serde.Format, e serde.FormatEngine) {
	blockFormats.Register(f, e)
}

// Digest is the hash of a block.
type Digest [DigestSize]byte

// String implements fmt.Stringer. It returns a short representation of the
// digest.
func (d Digest) String() string {
	return fmt.Sprintf("%#x", d[:4])
}

// Block is a batch of transactions applied to the state at once. It is linked
// to the previous block by its hash so that the history cannot be rewritten
// without breaking the chain.
//
// - implements serde.Message
// - implements serde.Fingerprinter
type Block struct {
	index     uint64
	timestamp uint64
	previous  Digest
	data      validation.Data
	stateHash Digest
	hash      Digest
}

type blockTemplate struct {
	Block

	hashFactory crypto.HashFactory
}

// BlockOption is the type of options to create a block.
type BlockOption func(*blockTemplate)

// WithIndex is an option to set the block index.
func WithIndex(index uint64) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.index = index
	}
}

// WithTimestamp is an option to set the time of the block.
func WithTimestamp(ts uint64) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.timestamp = ts
	}
}

// WithPrevious is an option to set the hash of the previous block.
func WithPrevious(previous Digest) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.previous = previous
	}
}

// WithStateHash is an option to set the hash of the updates of the state made
// by the block.
func WithStateHash(h Digest) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.stateHash = h
	}
}

// WithHashFactory is an option to set the hash factory used to compute the
// hash of the block.
func WithHashFactory(fac crypto.HashFactory) BlockOption {
	return func(tmpl *blockTemplate) {
		tmpl.hashFactory = fac
	}
}

// NewBlock creates a new block and computes its hash.
func NewBlock(data validation.Data, opts ...BlockOption) (Block, error) {
	tmpl := blockTemplate{
		Block: Block{
			data: data,
		},
		hashFactory: crypto.NewSha256Factory(),
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	h := tmpl.hashFactory.New()
	err := tmpl.Block.Fingerprint(h)
	if err != nil {
		return Block{}, xerrors.Errorf("failed to fingerprint: %v", err)
	}

	copy(tmpl.hash[:], h.Sum(nil))

	return tmpl.Block, nil
}

// GetIndex returns the index of the block.
func (b Block) GetIndex() uint64 {
	return b.index
}

// GetTimestamp returns the time of the block in seconds since the Unix epoch.
func (b Block) GetTimestamp() uint64 {
	return b.timestamp
}

// GetPrevious returns the hash of the previous block.
func (b Block) GetPrevious() Digest {
	return b.previous
}

// GetData returns the validated transactions of the block.
func (b Block) GetData() validation.Data {
	return b.data
}

// GetStateHash returns the hash of the updates of the state.
func (b Block) GetStateHash() Digest {
	return b.stateHash
}

// GetHash returns the hash of the block.
func (b Block) GetHash() Digest {
	return b.hash
}

// Fingerprint implements serde.Fingerprinter. It writes a deterministic binary
// representation of the block, without its own hash.
func (b Block) Fingerprint(w io.Writer) error {
	buffer := make([]byte, 16, 16+2*DigestSize)
	binary.LittleEndian.PutUint64(buffer[:8], b.index)
	binary.LittleEndian.PutUint64(buffer[8:], b.timestamp)
	buffer = append(buffer, b.previous[:]...)
	buffer = append(buffer, b.stateHash[:]...)

	_, err := w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write header: %v", err)
	}

	if b.data != nil {
		err = b.data.Fingerprint(w)
		if err != nil {
			return xerrors.Errorf("couldn't fingerprint data: %v", err)
		}
	}

	return nil
}

// Serialize implements serde.Message. It returns the serialized data of the
// block.
func (b Block) Serialize(ctx serde.Context) ([]byte, error) {
	format := blockFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, b)
	if err != nil {
		return nil, xerrors.Errorf("encoding failed: %v", err)
	}

	return data, nil
}

// DataKey is the key of the validated data factory.
type DataKey struct{}

// BlockFactory is a factory to deserialize blocks.
//
// - implements serde.Factory
type BlockFactory struct {
	dataFac validation.DataFactory
}

// NewBlockFactory creates a new block factory.
func NewBlockFactory(fac validation.DataFactory) BlockFactory {
	return BlockFactory{
		dataFac: fac,
	}
}

// Deserialize implements serde.Factory. It populates the block from the data if
// appropriate, otherwise it returns an error.
func (f BlockFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.BlockOf(ctx, data)
}

// BlockOf returns the block of the data if appropriate, otherwise an error.
func (f BlockFactory) BlockOf(ctx serde.Context, data []byte) (Block, error) {
	format := blockFormats.Get(ctx.GetFormat())

	ctx = serde.WithFactory(ctx, DataKey{}, f.dataFac)

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return Block{}, xerrors.Errorf("decoding failed: %v", err)
	}

	block, ok := msg.(Block)
	if !ok {
		return Block{}, xerrors.Errorf("invalid block of type '%T'", msg)
	}

	return block, nil
}

// VerifyLink returns nil if the block is the successor of the previous one.
func (b Block) VerifyLink(previous Block) error {
	if b.index != previous.index+1 {
		return xerrors.Errorf("index %d does not follow %d", b.index, previous.index)
	}

	if !bytes.Equal(b.previous[:], previous.hash[:]) {
		return xerrors.Errorf("previous hash %v != %v", b.previous, previous.hash)
	}

	if b.timestamp < previous.timestamp {
		return xerrors.Errorf("timestamp %d is before %d", b.timestamp, previous.timestamp)
	}

	return nil
}
