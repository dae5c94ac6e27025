// Package ordering defines the interface of the ordering service. The
// high-level purpose of this service is to order the transactions from the
// pool into blocks and to apply them to the state of the ledger.
package ordering

import (
	"context"

	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/validation"
)

// Event is the event triggered when a block is committed.
type Event struct {
	// Index is the index of the block.
	Index uint64

	// Timestamp is the time of the block in seconds since the Unix epoch.
	Timestamp uint64

	// Transactions is the list of results of the transactions of the block.
	Transactions []validation.TransactionResult
}

// Service is the interface of an ordering service. It provides the primitives
// to order transactions from a pool.
type Service interface {
	// Add submits a transaction to be ordered.
	Add(tx txn.Transaction) error

	// GetStore returns a read-only access to the committed state. Each read
	// observes the latest block.
	GetStore() store.Readable

	// View runs the function with a read-only access to the state of a single
	// block, so that a query made of several reads is consistent.
	View(fn func(store.Readable) error) error

	// Watch returns a channel populated with the events of the committed
	// blocks until the context is done.
	Watch(ctx context.Context) <-chan Event

	// Close stops the service.
	Close() error
}
