// Package mem implements an in-memory transaction pool that keeps the order of
// submission.
package mem

import (
	"context"
	"sync"

	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/pool"
	"golang.org/x/xerrors"
)

type waiter struct {
	min int
	ch  chan struct{}
}

// Pool is an in-memory transaction pool. It only accepts transactions from a
// local client. The transactions are gathered in the order they were added.
//
// - implements pool.Pool
type Pool struct {
	sync.Mutex
	history map[pool.Key]struct{}
	pending map[pool.Key]struct{}
	queue   []txn.Transaction
	waiters []waiter
	closed  bool
}

// NewPool creates a new empty pool.
func NewPool() *Pool {
	return &Pool{
		history: make(map[pool.Key]struct{}),
		pending: make(map[pool.Key]struct{}),
	}
}

// Len implements pool.Pool. It returns the number of pending transactions.
func (p *Pool) Len() int {
	p.Lock()
	defer p.Unlock()

	return len(p.queue)
}

// Add implements pool.Pool. It appends the transaction to the queue of pending
// transactions. A transaction is accepted only once.
func (p *Pool) Add(tx txn.Transaction) error {
	key, err := makeKey(tx)
	if err != nil {
		return err
	}

	p.Lock()
	defer p.Unlock()

	if p.closed {
		return xerrors.New("pool is closed")
	}

	_, found := p.history[key]
	if !found {
		_, found = p.pending[key]
	}

	if found {
		return xerrors.Errorf("tx %v already exists", key)
	}

	p.pending[key] = struct{}{}
	p.queue = append(p.queue, tx)

	p.notify()

	return nil
}

// Remove implements pool.Pool. It removes the transaction from the queue and
// remembers it so that it cannot be added again.
func (p *Pool) Remove(tx txn.Transaction) error {
	key, err := makeKey(tx)
	if err != nil {
		return err
	}

	p.Lock()
	defer p.Unlock()

	_, found := p.pending[key]
	if !found {
		return xerrors.Errorf("transaction %v not found", key)
	}

	delete(p.pending, key)
	p.history[key] = struct{}{}

	for i, other := range p.queue {
		otherKey, _ := makeKey(other)
		if otherKey == key {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			break
		}
	}

	return nil
}

// Gather implements pool.Pool. It waits for the minimum of transactions and
// returns them in the order of submission.
func (p *Pool) Gather(ctx context.Context, cfg pool.Config) []txn.Transaction {
	p.Lock()

	if p.closed {
		p.Unlock()
		return nil
	}

	if len(p.queue) >= cfg.Min {
		txs := p.makeArray(cfg.Max)
		p.Unlock()

		return txs
	}

	w := waiter{min: cfg.Min, ch: make(chan struct{})}
	p.waiters = append(p.waiters, w)

	p.Unlock()

	if cfg.Callback != nil {
		cfg.Callback()
	}

	select {
	case <-w.ch:
	case <-ctx.Done():
		return nil
	}

	p.Lock()
	defer p.Unlock()

	if p.closed {
		return nil
	}

	return p.makeArray(cfg.Max)
}

// Close implements pool.Pool. It releases the waiting gatherers.
func (p *Pool) Close() error {
	p.Lock()
	defer p.Unlock()

	p.closed = true

	for _, w := range p.waiters {
		close(w.ch)
	}

	p.waiters = nil

	return nil
}

// notify releases the waiters that have enough transactions. The lock must be
// held.
func (p *Pool) notify() {
	remaining := p.waiters[:0]

	for _, w := range p.waiters {
		if w.min <= len(p.queue) {
			close(w.ch)
		} else {
			remaining = append(remaining, w)
		}
	}

	p.waiters = remaining
}

func (p *Pool) makeArray(max int) []txn.Transaction {
	n := len(p.queue)
	if max > 0 && max < n {
		n = max
	}

	return append([]txn.Transaction{}, p.queue[:n]...)
}

func makeKey(tx txn.Transaction) (pool.Key, error) {
	key := pool.Key{}

	id := tx.GetID()
	if len(id) > pool.KeyMaxLength {
		return key, xerrors.Errorf("tx identifier is too long: %d > %d", len(id), pool.KeyMaxLength)
	}

	copy(key[:], id)

	return key, nil
}
