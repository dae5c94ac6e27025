// Package json defines the JSON messages of the blocks of the serial ordering
// service.
package json

import (
	"bytes"
	"encoding/json"

	"go.dedis.ch/ballot/core/ordering/serial/types"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

func init() {
	types.RegisterBlockFormat(serde.FormatJSON, blockFormat{})
}

// BlockJSON is the JSON message of a block.
type BlockJSON struct {
	Index     uint64
	Timestamp uint64
	Previous  []byte
	StateHash []byte
	Data      json.RawMessage
	Hash      []byte
}

// blockFormat is the format engine to encode and decode blocks.
//
// - implements serde.FormatEngine
type blockFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the block
// if appropriate, otherwise an error.
func (f blockFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	block, ok := msg.(types.Block)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	if block.GetData() == nil {
		return nil, xerrors.New("missing data")
	}

	data, err := block.GetData().Serialize(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to serialize data: %v", err)
	}

	previous := block.GetPrevious()
	stateHash := block.GetStateHash()
	hash := block.GetHash()

	m := BlockJSON{
		Index:     block.GetIndex(),
		Timestamp: block.GetTimestamp(),
		Previous:  previous[:],
		StateHash: stateHash[:],
		Data:      data,
		Hash:      hash[:],
	}

	buffer, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return buffer, nil
}

// Decode implements serde.FormatEngine. It returns the block of the JSON data
// if appropriate, otherwise an error. The hash of the block is computed again
// and must match the one of the message.
func (f blockFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := BlockJSON{}
	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	fac := ctx.GetFactory(types.DataKey{})

	factory, ok := fac.(validation.DataFactory)
	if !ok {
		return nil, xerrors.Errorf("invalid data factory '%T'", fac)
	}

	vdata, err := factory.DataOf(ctx, m.Data)
	if err != nil {
		return nil, xerrors.Errorf("failed to deserialize data: %v", err)
	}

	var previous, stateHash types.Digest
	copy(previous[:], m.Previous)
	copy(stateHash[:], m.StateHash)

	block, err := types.NewBlock(vdata,
		types.WithIndex(m.Index),
		types.WithTimestamp(m.Timestamp),
		types.WithPrevious(previous),
		types.WithStateHash(stateHash))
	if err != nil {
		return nil, xerrors.Errorf("failed to create block: %v", err)
	}

	hash := block.GetHash()
	if !bytes.Equal(hash[:], m.Hash) {
		return nil, xerrors.Errorf("mismatch hash %#x != %#x", hash[:], m.Hash)
	}

	return block, nil
}
