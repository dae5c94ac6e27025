// Package json defines the JSON messages for the validated data of the simple
// validation service.
package json

import (
	"encoding/json"

	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/validation/simple"
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

func init() {
	simple.RegisterResultFormat(serde.FormatJSON, resFormat{})
	simple.RegisterDataFormat(serde.FormatJSON, dataFormat{})
}

// TransactionResultJSON is the JSON message for transaction results.
type TransactionResultJSON struct {
	Transaction json.RawMessage
	Accepted    bool
	Reason      string
}

// DataJSON is the JSON message for the validated data.
type DataJSON struct {
	Results []json.RawMessage
}

// resFormat is the format engine to encode and decode transaction results.
//
// - implements serde.FormatEngine
type resFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the
// transaction result if appropriate, otherwise an error.
func (f resFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	txres, ok := msg.(simple.TransactionResult)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	tx, err := txres.GetTransaction().Serialize(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to serialize tx: %v", err)
	}

	accepted, reason := txres.GetStatus()

	m := TransactionResultJSON{
		Transaction: tx,
		Accepted:    accepted,
		Reason:      reason,
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It returns the transaction result of
// the JSON data if appropriate, otherwise an error.
func (f resFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := TransactionResultJSON{}
	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	factory := ctx.GetFactory(simple.TransactionKey{})

	fac, ok := factory.(txn.Factory)
	if !ok {
		return nil, xerrors.Errorf("invalid transaction factory '%T'", factory)
	}

	tx, err := fac.TransactionOf(ctx, m.Transaction)
	if err != nil {
		return nil, xerrors.Errorf("failed to deserialize tx: %v", err)
	}

	return simple.NewTransactionResult(tx, m.Accepted, m.Reason), nil
}

// dataFormat is the format engine to encode and decode validated data.
//
// - implements serde.FormatEngine
type dataFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the
// validated data if appropriate, otherwise an error.
func (f dataFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	vdata, ok := msg.(simple.Data)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	results := vdata.GetTransactionResults()
	raws := make([]json.RawMessage, len(results))

	for i, res := range results {
		buffer, err := res.Serialize(ctx)
		if err != nil {
			return nil, xerrors.Errorf("failed to serialize result: %v", err)
		}

		raws[i] = buffer
	}

	m := DataJSON{
		Results: raws,
	}

	buffer, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return buffer, nil
}

// Decode implements serde.FormatEngine. It returns the validated data of the
// JSON data if appropriate, otherwise an error.
func (f dataFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := DataJSON{}
	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	factory := ctx.GetFactory(simple.ResultKey{})
	if factory == nil {
		return nil, xerrors.New("missing result factory")
	}

	results := make([]simple.TransactionResult, len(m.Results))
	for i, raw := range m.Results {
		msg, err := factory.Deserialize(ctx, raw)
		if err != nil {
			return nil, xerrors.Errorf("failed to deserialize result: %v", err)
		}

		res, ok := msg.(simple.TransactionResult)
		if !ok {
			return nil, xerrors.Errorf("invalid transaction result of type '%T'", msg)
		}

		results[i] = res
	}

	return simple.NewData(results), nil
}
