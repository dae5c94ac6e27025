// Package pool defines the interface for a transaction pool. It holds the
// transactions of the clients until the ordering service reads them.
package pool

import (
	"context"
	"fmt"

	"go.dedis.ch/ballot/core/txn"
)

// KeyMaxLength is the maximum length of a transaction identifier.
const KeyMaxLength = 32

// Key is the key of a transaction. By definition, it expects that the
// identifier of the transaction is no more than 32 bytes long.
type Key [KeyMaxLength]byte

// String implements fmt.Stringer. It returns a short string representation of
// the key.
func (k Key) String() string {
	return fmt.Sprintf("%#x", k[:4])
}

// Config is the set of parameters that allows one to change the behavior of the
// gathering process.
type Config struct {
	// Min is the minimum number of transactions to wait for.
	Min int

	// Max is the maximum number of transactions returned, or no limit if it is
	// zero.
	Max int

	// Callback is called once the gatherer starts to wait for transactions.
	Callback func()
}

// Pool is the maintainer of the list of transactions.
type Pool interface {
	// Len returns the length of the pool.
	Len() int

	// Add adds the transaction to the pool.
	Add(txn.Transaction) error

	// Remove removes the transaction from the pool.
	Remove(txn.Transaction) error

	// Gather returns the pending transactions in the order they were added as
	// soon as there are enough of them, or nil if the context is done. The
	// transactions stay in the pool until they are removed.
	Gather(ctx context.Context, cfg Config) []txn.Transaction

	// Close releases the gathering processes.
	Close() error
}
