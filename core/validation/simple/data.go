package simple

import (
	"encoding/binary"
	"io"

	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/registry"
	"golang.org/x/xerrors"
)

var (
	resFormats  = registry.NewSimpleRegistry()
	dataFormats = registry.NewSimpleRegistry()
)

// RegisterResultFormat registers the engine for the provided format.
func RegisterResultFormat(f serde.Format, e serde.FormatEngine) {
	resFormats.Register(f, e)
}

// RegisterDataFormat registers the engine for the provided format.
func RegisterDataFormat(f serde.Format, e serde.FormatEngine) {
	dataFormats.Register(f, e)
}

// TransactionResult is the receipt of a transaction of a block. A refused
// transaction keeps the message of the contract as the reason.
//
// - implements validation.TransactionResult
type TransactionResult struct {
	tx       txn.Transaction
	accepted bool
	reason   string
}

// NewTransactionResult creates the receipt of a transaction.
func NewTransactionResult(tx txn.Transaction, accepted bool, reason string) TransactionResult {
	return TransactionResult{
		tx:       tx,
		accepted: accepted,
		reason:   reason,
	}
}

// GetTransaction implements validation.TransactionResult.
func (res TransactionResult) GetTransaction() txn.Transaction {
	return res.tx
}

// GetStatus implements validation.TransactionResult.
func (res TransactionResult) GetStatus() (bool, string) {
	return res.accepted, res.reason
}

// Serialize implements serde.Message.
func (res TransactionResult) Serialize(ctx serde.Context) ([]byte, error) {
	return encode(ctx, resFormats, res)
}

// fingerprint writes the transaction followed by the status byte and the
// length-prefixed reason.
func (res TransactionResult) fingerprint(w io.Writer) error {
	err := res.tx.Fingerprint(w)
	if err != nil {
		return xerrors.Errorf("couldn't fingerprint tx: %v", err)
	}

	status := make([]byte, 1, 1+binary.MaxVarintLen64+len(res.reason))
	if res.accepted {
		status[0] = 1
	}

	status = binary.AppendUvarint(status, uint64(len(res.reason)))
	status = append(status, res.reason...)

	_, err = w.Write(status)
	if err != nil {
		return xerrors.Errorf("couldn't write status: %v", err)
	}

	return nil
}

// TransactionKey is the key of the transaction factory.
type TransactionKey struct{}

// ResultFactory is the factory to deserialize transaction results.
//
// - implements serde.Factory
type ResultFactory struct {
	fac txn.Factory
}

// NewResultFactory creates a new transaction result factory.
func NewResultFactory(f txn.Factory) ResultFactory {
	return ResultFactory{
		fac: f,
	}
}

// Deserialize implements serde.Factory.
func (f ResultFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return decode(serde.WithFactory(ctx, TransactionKey{}, f.fac), resFormats, data)
}

// Data is the list of receipts of a block, in the order of the transactions.
//
// - implements validation.Data
type Data struct {
	txs []TransactionResult
}

// NewData creates new validated data from a list of transaction results.
func NewData(results []TransactionResult) Data {
	return Data{
		txs: results,
	}
}

// GetTransactionResults implements validation.Data.
func (d Data) GetTransactionResults() []validation.TransactionResult {
	res := make([]validation.TransactionResult, len(d.txs))
	for i, r := range d.txs {
		res[i] = r
	}

	return res
}

// Fingerprint implements serde.Fingerprinter. It writes the number of receipts
// then each of them, so that the hash of a block depends on the outcome of
// every transaction.
func (d Data) Fingerprint(w io.Writer) error {
	_, err := w.Write(binary.AppendUvarint(nil, uint64(len(d.txs))))
	if err != nil {
		return xerrors.Errorf("couldn't write length: %v", err)
	}

	for _, res := range d.txs {
		err = res.fingerprint(w)
		if err != nil {
			return err
		}
	}

	return nil
}

// Serialize implements serde.Message.
func (d Data) Serialize(ctx serde.Context) ([]byte, error) {
	return encode(ctx, dataFormats, d)
}

// ResultKey is the key of the transaction result factory.
type ResultKey struct{}

// DataFactory is the factory to deserialize validated data.
//
// - implements validation.DataFactory
type DataFactory struct {
	fac serde.Factory
}

// NewDataFactory creates a new data factory.
func NewDataFactory(f txn.Factory) DataFactory {
	return DataFactory{
		fac: NewResultFactory(f),
	}
}

// Deserialize implements serde.Factory.
func (f DataFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.DataOf(ctx, data)
}

// DataOf implements validation.DataFactory. It returns the receipts of a block
// from their serialized form.
func (f DataFactory) DataOf(ctx serde.Context, data []byte) (validation.Data, error) {
	msg, err := decode(serde.WithFactory(ctx, ResultKey{}, f.fac), dataFormats, data)
	if err != nil {
		return nil, err
	}

	vdata, ok := msg.(Data)
	if !ok {
		return nil, xerrors.Errorf("invalid data type '%T'", msg)
	}

	return vdata, nil
}

func encode(ctx serde.Context, formats registry.Registry, msg serde.Message) ([]byte, error) {
	data, err := formats.Get(ctx.GetFormat()).Encode(ctx, msg)
	if err != nil {
		return nil, xerrors.Errorf("encoding failed: %v", err)
	}

	return data, nil
}

func decode(ctx serde.Context, formats registry.Registry, data []byte) (serde.Message, error) {
	msg, err := formats.Get(ctx.GetFormat()).Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("decoding failed: %v", err)
	}

	return msg, nil
}
