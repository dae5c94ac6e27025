// Package simple implements a simple validation service.
//
// Each transaction is executed on its own layer on top of the snapshot. The
// layer is applied only when the transaction is accepted, so that a refused
// transaction never leaves a partial update behind.
package simple

import (
	"encoding/binary"

	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/store/mem"
	"go.dedis.ch/ballot/core/store/prefixed"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/validation"
	"golang.org/x/xerrors"
)

// noncePrefix is the namespace of the nonces in the store.
const noncePrefix = "ballot:nonces"

// Service is a standard validation service that will process the batch and
// update the snapshot accordingly.
//
// - implements validation.Service
type Service struct {
	execution execution.Service
	fac       validation.DataFactory
}

// NewService creates a new validation service.
func NewService(exec execution.Service, f txn.Factory) Service {
	return Service{
		execution: exec,
		fac:       NewDataFactory(f),
	}
}

// GetFactory implements validation.Service. It returns the factory for the
// validated data.
func (s Service) GetFactory() validation.DataFactory {
	return s.fac
}

// GetNonce implements validation.Service. It returns the nonce to use for the
// next transaction of the identity.
func (s Service) GetNonce(r store.Readable, ident access.Identity) (uint64, error) {
	key, err := ident.MarshalText()
	if err != nil {
		return 0, xerrors.Errorf("failed to marshal identity: %v", err)
	}

	value, err := prefixed.NewReadable(noncePrefix, r).Get(key)
	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	if value == nil {
		return 0, nil
	}

	if len(value) != 8 {
		return 0, xerrors.Errorf("malformed nonce of length %d", len(value))
	}

	return binary.LittleEndian.Uint64(value), nil
}

// Validate implements validation.Service. It processes the list of transactions
// while updating the snapshot then returns a bundle of the transaction results.
func (s Service) Validate(snap store.Snapshot, timestamp uint64, txs []txn.Transaction) (validation.Data, error) {
	results := make([]TransactionResult, len(txs))

	step := execution.Step{
		Previous:  make([]txn.Transaction, 0, len(txs)),
		Timestamp: timestamp,
	}

	for i, tx := range txs {
		step.Current = tx

		res, err := s.validateTx(snap, step)
		if err != nil {
			// This is a critical error unrelated to the transaction itself.
			return nil, xerrors.Errorf("failed to validate tx: %v", err)
		}

		results[i] = TransactionResult{
			tx:       tx,
			accepted: res.Accepted,
			reason:   res.Message,
		}

		step.Previous = append(step.Previous, tx)
	}

	return NewData(results), nil
}

func (s Service) validateTx(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	tx := step.Current

	err := tx.Verify()
	if err != nil {
		return execution.Result{Message: err.Error()}, nil
	}

	expected, err := s.GetNonce(snap, tx.GetIdentity())
	if err != nil {
		return execution.Result{}, xerrors.Errorf("nonce: %v", err)
	}

	if tx.GetNonce() != expected {
		res := execution.Result{
			Message: xerrors.Errorf("nonce '%d' != '%d'", tx.GetNonce(), expected).Error(),
		}

		return res, nil
	}

	layer := mem.NewSnapshot(snap)

	res, err := s.execution.Execute(layer, step)
	if err != nil {
		return res, xerrors.Errorf("failed to execute tx: %v", err)
	}

	if res.Accepted {
		err = layer.Apply(snap)
		if err != nil {
			return res, xerrors.Errorf("failed to apply tx: %v", err)
		}
	} else {
		ballot.Logger.Debug().
			Uint64("nonce", tx.GetNonce()).
			Str("reason", res.Message).
			Msg("transaction refused")
	}

	err = s.setNonce(snap, tx.GetIdentity(), expected+1)
	if err != nil {
		return res, xerrors.Errorf("failed to set nonce: %v", err)
	}

	return res, nil
}

func (s Service) setNonce(snap store.Snapshot, ident access.Identity, nonce uint64) error {
	key, err := ident.MarshalText()
	if err != nil {
		return xerrors.Errorf("failed to marshal identity: %v", err)
	}

	value := make([]byte, 8)
	binary.LittleEndian.PutUint64(value, nonce)

	err = prefixed.NewSnapshot(noncePrefix, snap).Set(key, value)
	if err != nil {
		return xerrors.Errorf("failed to write: %v", err)
	}

	return nil
}
