// Package serial implements a single-writer ordering service.
//
// The transactions are taken from the pool in the order of submission and
// applied one after the other. A block is created for each batch and it is
// persisted together with the updates of the state in a single database
// transaction, so that the state always matches the last block of the chain.
package serial

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/ordering"
	"go.dedis.ch/ballot/core/ordering/serial/types"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/store/mem"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/pool"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

var (
	stateBucket  = []byte("state")
	blocksBucket = []byte("blocks")
)

// defines prometheus metrics
var (
	promBlocks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ballot_serial_blocks_total",
		Help: "total number of blocks",
	})

	promTxs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ballot_serial_transactions_block",
		Help:    "total number of transactions in the last block",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 20, 30, 50, 100},
	})

	promRefusedTxs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ballot_serial_transactions_refused_block",
		Help:    "total number of refused transactions in the last block",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 20, 30, 50, 100},
	})

	promDroppedEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ballot_serial_dropped_events_total",
		Help: "total number of block events dropped for late subscribers",
	})
)

func init() {
	ballot.PromCollectors = append(ballot.PromCollectors, promBlocks, promTxs,
		promRefusedTxs, promDroppedEvents)
}

const (
	defaultBlockTime = 100 * time.Millisecond
	defaultMaxTxs    = 100

	// watchBuffer is the number of events a subscriber can be late before
	// the new ones are dropped.
	watchBuffer = 16
)

// GenesisFn is the function applied to the empty state when the chain is
// created.
type GenesisFn func(snap store.Snapshot) error

// Service is an ordering service that processes the transactions of a local
// pool one batch at a time.
//
// - implements ordering.Service
type Service struct {
	sync.Mutex

	db          kv.DB
	pool        pool.Pool
	val         validation.Service
	watcher     core.Observable
	blockFac    types.BlockFactory
	context     serde.Context
	hashFactory crypto.HashFactory
	logger      zerolog.Logger

	timeFn    func() time.Time
	blockTime time.Duration
	maxTxs    int

	head    *types.Block
	flushCh chan struct{}
	closing chan struct{}
	closed  sync.WaitGroup
	started bool
}

type serviceTemplate struct {
	Service
}

// ServiceOption is the type of options to create a service.
type ServiceOption func(*serviceTemplate)

// WithBlockTime is an option to set the time the service waits for more
// transactions before creating a block.
func WithBlockTime(d time.Duration) ServiceOption {
	return func(tmpl *serviceTemplate) {
		tmpl.blockTime = d
	}
}

// WithMaxTransactions is an option to set the maximum number of transactions
// in a block.
func WithMaxTransactions(n int) ServiceOption {
	return func(tmpl *serviceTemplate) {
		tmpl.maxTxs = n
	}
}

// WithClock is an option to set the source of time of the blocks.
func WithClock(fn func() time.Time) ServiceOption {
	return func(tmpl *serviceTemplate) {
		tmpl.timeFn = fn
	}
}

// NewService creates a new ordering service on top of the database. The head
// of the chain is loaded if it exists.
func NewService(db kv.DB, p pool.Pool, val validation.Service, opts ...ServiceOption) (*Service, error) {
	tmpl := serviceTemplate{
		Service: Service{
			db:          db,
			pool:        p,
			val:         val,
			watcher:     core.NewWatcher(),
			blockFac:    types.NewBlockFactory(val.GetFactory()),
			context:     json.NewContext(),
			hashFactory: crypto.NewSha256Factory(),
			logger:      ballot.Logger.With().Str("service", "ordering").Logger(),
			timeFn:      time.Now,
			blockTime:   defaultBlockTime,
			maxTxs:      defaultMaxTxs,
			flushCh:     make(chan struct{}, 1),
			closing:     make(chan struct{}),
		},
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	srvc := &tmpl.Service

	head, err := srvc.loadHead()
	if err != nil {
		return nil, xerrors.Errorf("failed to load head: %v", err)
	}

	srvc.head = head

	return srvc, nil
}

// Setup creates the genesis block if the chain is empty. The genesis function
// populates the initial state. It does nothing if the chain already exists.
func (s *Service) Setup(timestamp uint64, fn GenesisFn) error {
	s.Lock()
	defer s.Unlock()

	if s.head != nil {
		s.logger.Debug().Uint64("index", s.head.GetIndex()).Msg("chain already exists")
		return nil
	}

	var genesis types.Block

	err := s.db.Update(func(tx kv.WritableTx) error {
		state, err := tx.GetBucketOrCreate(stateBucket)
		if err != nil {
			return err
		}

		layer := mem.NewSnapshot(kv.NewBucketSnapshot(state))

		err = fn(layer)
		if err != nil {
			return xerrors.Errorf("genesis function failed: %v", err)
		}

		data, err := s.val.Validate(layer, timestamp, nil)
		if err != nil {
			return xerrors.Errorf("validation failed: %v", err)
		}

		genesis, err = s.writeBlock(tx, layer, 0, timestamp, types.Digest{}, data)
		if err != nil {
			return err
		}

		tx.OnCommit(func() {
			s.head = &genesis
		})

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to create genesis: %v", err)
	}

	promBlocks.Set(1)

	s.logger.Info().Str("hash", genesis.GetHash().String()).Msg("genesis block created")

	return nil
}

// Listen starts the loop that creates the blocks. The chain must have been set
// up before.
func (s *Service) Listen() error {
	s.Lock()
	defer s.Unlock()

	if s.head == nil {
		return xerrors.New("missing genesis block")
	}

	if s.started {
		return xerrors.New("service already started")
	}

	s.started = true
	s.closed.Add(1)

	go func() {
		defer s.closed.Done()
		s.main()
	}()

	return nil
}

// Add implements ordering.Service. It verifies the transaction then adds it to
// the pool.
func (s *Service) Add(tx txn.Transaction) error {
	err := tx.Verify()
	if err != nil {
		return xerrors.Errorf("invalid transaction: %v", err)
	}

	err = s.pool.Add(tx)
	if err != nil {
		return xerrors.Errorf("pool: %v", err)
	}

	return nil
}

// Flush requests the creation of a block without waiting for the block time.
func (s *Service) Flush() {
	select {
	case s.flushCh <- struct{}{}:
	default:
	}
}

// GetStore implements ordering.Service. It returns a read-only access to the
// committed state.
func (s *Service) GetStore() store.Readable {
	return kv.NewReadable(s.db, stateBucket)
}

// View implements ordering.Service. It runs the function in a read
// transaction of the committed state.
func (s *Service) View(fn func(store.Readable) error) error {
	return kv.ViewReadable(s.db, stateBucket, fn)
}

// GetNonce returns the next nonce expected for the identity in the committed
// state.
func (s *Service) GetNonce(ident access.Identity) (uint64, error) {
	return s.val.GetNonce(s.GetStore(), ident)
}

// GetLatest returns the last block of the chain.
func (s *Service) GetLatest() (types.Block, error) {
	s.Lock()
	defer s.Unlock()

	if s.head == nil {
		return types.Block{}, xerrors.New("chain is empty")
	}

	return *s.head, nil
}

// GetBlock returns the block at the given index if it exists.
func (s *Service) GetBlock(index uint64) (types.Block, error) {
	var block types.Block

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(blocksBucket)
		if bucket == nil {
			return xerrors.New("chain is empty")
		}

		data := bucket.Get(makeIndexKey(index))
		if data == nil {
			return xerrors.Errorf("block %d not found", index)
		}

		var err error
		block, err = s.blockFac.BlockOf(s.context, data)
		if err != nil {
			return xerrors.Errorf("malformed block: %v", err)
		}

		return nil
	})
	if err != nil {
		return types.Block{}, err
	}

	return block, nil
}

// VerifyChain reads the whole chain and checks that every block is correctly
// linked to the previous one. It returns the number of blocks.
func (s *Service) VerifyChain() (uint64, error) {
	var count uint64

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(blocksBucket)
		if bucket == nil {
			return nil
		}

		var previous *types.Block

		return bucket.ForEach(func(k, v []byte) error {
			block, err := s.blockFac.BlockOf(s.context, v)
			if err != nil {
				return xerrors.Errorf("block %#x: %v", k, err)
			}

			if binary.BigEndian.Uint64(k) != block.GetIndex() {
				return xerrors.Errorf("block %d stored at %#x", block.GetIndex(), k)
			}

			if previous == nil {
				if block.GetIndex() != 0 {
					return xerrors.Errorf("chain starts at %d", block.GetIndex())
				}
			} else {
				err = block.VerifyLink(*previous)
				if err != nil {
					return xerrors.Errorf("block %d: %v", block.GetIndex(), err)
				}
			}

			previous = &block
			count++

			return nil
		})
	})
	if err != nil {
		return 0, xerrors.Errorf("invalid chain: %v", err)
	}

	return count, nil
}

// Watch implements ordering.Service. It returns a channel populated with the
// events of the new blocks until the context is done.
func (s *Service) Watch(ctx context.Context) <-chan ordering.Event {
	obs := &observer{
		ch:     make(chan ordering.Event, watchBuffer),
		done:   ctx.Done(),
		logger: s.logger,
	}

	s.watcher.Add(obs)

	go func() {
		<-ctx.Done()
		s.watcher.Remove(obs)
	}()

	return obs.ch
}

// Close implements ordering.Service. It stops the loop and waits for the block
// in progress to be committed.
func (s *Service) Close() error {
	s.Lock()

	select {
	case <-s.closing:
		s.Unlock()
		return nil
	default:
		close(s.closing)
	}

	s.Unlock()

	err := s.pool.Close()
	if err != nil {
		return xerrors.Errorf("failed to close pool: %v", err)
	}

	s.closed.Wait()

	return nil
}

func (s *Service) main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-s.closing
		cancel()
	}()

	for {
		txs := s.pool.Gather(ctx, pool.Config{Min: 1})
		if len(txs) == 0 {
			// The pool is closed or the service is closing.
			return
		}

		select {
		case <-time.After(s.blockTime):
		case <-s.flushCh:
		case <-s.closing:
			return
		}

		txs = s.pool.Gather(ctx, pool.Config{Min: 1, Max: s.maxTxs})
		if len(txs) == 0 {
			return
		}

		err := s.commitBlock(txs)
		if err != nil {
			s.logger.Err(err).Msg("failed to commit block")

			select {
			case <-time.After(s.blockTime):
			case <-s.closing:
				return
			}

			continue
		}

		for _, tx := range txs {
			err = s.pool.Remove(tx)
			if err != nil {
				s.logger.Warn().Err(err).Msg("failed to remove tx from pool")
			}
		}
	}
}

func (s *Service) commitBlock(txs []txn.Transaction) error {
	s.Lock()
	head := *s.head
	s.Unlock()

	timestamp := uint64(s.timeFn().Unix())
	if timestamp < head.GetTimestamp() {
		timestamp = head.GetTimestamp()
	}

	var block types.Block

	err := s.db.Update(func(tx kv.WritableTx) error {
		state, err := tx.GetBucketOrCreate(stateBucket)
		if err != nil {
			return err
		}

		layer := mem.NewSnapshot(kv.NewBucketSnapshot(state))

		data, err := s.val.Validate(layer, timestamp, txs)
		if err != nil {
			return xerrors.Errorf("validation failed: %v", err)
		}

		block, err = s.writeBlock(tx, layer, head.GetIndex()+1, timestamp, head.GetHash(), data)
		if err != nil {
			return err
		}

		tx.OnCommit(func() {
			s.Lock()
			s.head = &block
			s.Unlock()
		})

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to commit: %v", err)
	}

	results := block.GetData().GetTransactionResults()

	refused := validation.CountRefused(results)

	promBlocks.Set(float64(block.GetIndex() + 1))
	promTxs.Observe(float64(len(results)))
	promRefusedTxs.Observe(float64(refused))

	s.logger.Info().
		Uint64("index", block.GetIndex()).
		Str("hash", block.GetHash().String()).
		Int("txs", len(results)).
		Int("refused", refused).
		Msg("block committed")

	s.watcher.Notify(ordering.Event{
		Index:        block.GetIndex(),
		Timestamp:    block.GetTimestamp(),
		Transactions: results,
	})

	return nil
}

// writeBlock creates the block for the updates of the layer, and writes both
// the updates and the block in the transaction.
func (s *Service) writeBlock(tx kv.WritableTx, layer *mem.Snapshot,
	index, timestamp uint64, previous types.Digest, data validation.Data) (types.Block, error) {

	h := s.hashFactory.New()
	err := layer.Fingerprint(h)
	if err != nil {
		return types.Block{}, xerrors.Errorf("failed to fingerprint state: %v", err)
	}

	var stateHash types.Digest
	copy(stateHash[:], h.Sum(nil))

	block, err := types.NewBlock(data,
		types.WithIndex(index),
		types.WithTimestamp(timestamp),
		types.WithPrevious(previous),
		types.WithStateHash(stateHash),
		types.WithHashFactory(s.hashFactory))
	if err != nil {
		return types.Block{}, xerrors.Errorf("failed to create block: %v", err)
	}

	state, err := tx.GetBucketOrCreate(stateBucket)
	if err != nil {
		return types.Block{}, err
	}

	err = layer.Apply(kv.NewBucketSnapshot(state))
	if err != nil {
		return types.Block{}, xerrors.Errorf("failed to apply state: %v", err)
	}

	buffer, err := block.Serialize(s.context)
	if err != nil {
		return types.Block{}, xerrors.Errorf("failed to serialize block: %v", err)
	}

	blocks, err := tx.GetBucketOrCreate(blocksBucket)
	if err != nil {
		return types.Block{}, err
	}

	err = blocks.Set(makeIndexKey(index), buffer)
	if err != nil {
		return types.Block{}, xerrors.Errorf("failed to store block: %v", err)
	}

	return block, nil
}

func (s *Service) loadHead() (*types.Block, error) {
	var raw []byte

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(blocksBucket)
		if bucket == nil {
			return nil
		}

		last := bucket.Last()
		if last != nil {
			raw = append([]byte{}, last...)
		}

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read db: %v", err)
	}

	if raw == nil {
		return nil, nil
	}

	block, err := s.blockFac.BlockOf(s.context, raw)
	if err != nil {
		return nil, xerrors.Errorf("malformed block: %v", err)
	}

	return &block, nil
}

// makeIndexKey returns the key of the block so that the keys are sorted by
// index in the bucket.
func makeIndexKey(index uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, index)

	return key
}

// observer forwards the events of the blocks to a channel until it is done.
//
// - implements core.Observer
type observer struct {
	ch     chan ordering.Event
	done   <-chan struct{}
	logger zerolog.Logger
}

// NotifyCallback implements core.Observer. It never blocks the block loop: the
// event is dropped when the subscriber has not consumed the previous ones.
func (o *observer) NotifyCallback(event interface{}) {
	evt := event.(ordering.Event)

	select {
	case <-o.done:
		return
	default:
	}

	select {
	case o.ch <- evt:
	default:
		promDroppedEvents.Inc()
		o.logger.Warn().Uint64("index", evt.Index).Msg("subscriber is late, event dropped")
	}
}
