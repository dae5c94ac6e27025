// Package validation defines the validator of a batch of transactions created
// by an ordering service.
package validation

import (
	"bytes"

	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/serde"
)

// TransactionResult is the result of a transaction processing. It contains the
// transaction and its state of success.
type TransactionResult interface {
	serde.Message

	// GetTransaction returns the transaction associated to the result.
	GetTransaction() txn.Transaction

	// GetStatus returns true if the transaction has been accepted, or false
	// with the reason of the refusal.
	GetStatus() (bool, string)
}

// Data is the result of a validation.
type Data interface {
	serde.Message
	serde.Fingerprinter

	// GetTransactionResults returns the results in the order of the batch.
	GetTransactionResults() []TransactionResult
}

// DataFactory is the factory for validated data.
type DataFactory interface {
	serde.Factory

	DataOf(serde.Context, []byte) (Data, error)
}

// Service is the validation service that will process a batch of transactions
// into a validated data that can be used as a payload of a block.
type Service interface {
	// GetFactory returns the validated data factory.
	GetFactory() DataFactory

	// GetNonce returns the nonce associated with the identity. The value
	// returned should be used for the next transaction to be valid.
	GetNonce(store.Readable, access.Identity) (uint64, error)

	// Validate processes the batch of transactions in order at the given block
	// time. The snapshot is updated only with the accepted transactions.
	Validate(snap store.Snapshot, timestamp uint64, txs []txn.Transaction) (Data, error)
}

// Find returns the result of the transaction with the given identifier, if it
// is part of the list.
func Find(results []TransactionResult, id []byte) (TransactionResult, bool) {
	for _, res := range results {
		if bytes.Equal(res.GetTransaction().GetID(), id) {
			return res, true
		}
	}

	return nil, false
}

// CountRefused returns the number of refused transactions in the list.
func CountRefused(results []TransactionResult) int {
	refused := 0

	for _, res := range results {
		accepted, _ := res.GetStatus()
		if !accepted {
			refused++
		}
	}

	return refused
}
