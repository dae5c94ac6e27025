// Package execution defines the service that applies a transaction to the
// state of the ledger.
package execution

import (
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/txn"
)

// Step is a context of execution. It contains the transaction to execute, the
// transactions of the same block already processed, and the time of the block.
type Step struct {
	Previous []txn.Transaction
	Current  txn.Transaction

	// Timestamp is the time of the block in seconds since the Unix epoch. It is
	// the only notion of time an execution can use so that the result is
	// deterministic.
	Timestamp uint64
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it. An error is returned only when the failure is not related to the
	// transaction.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
