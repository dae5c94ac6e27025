package controller

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/ordering/serial"
	"go.dedis.ch/ballot/core/ordering/serial/types"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/core/validation/simple"
	"go.dedis.ch/ballot/internal/testing/fake"
)

func TestMinimal_SetCommands(t *testing.T) {
	ctrl := NewController()

	builder := node.NewBuilder()
	ctrl.SetCommands(builder)
}

func TestMinimal_OnStart(t *testing.T) {
	ctrl := NewController()

	inj := node.NewInjector()

	err := ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err, "injector: couldn't find dependency for 'kv.DB'")

	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	defer db.Close()

	inj.Inject(db)

	err = ctrl.OnStart(node.FlagSet{BlockTimeFlag: float64(time.Millisecond)}, inj)
	require.NoError(t, err)

	var exec *native.Service
	require.NoError(t, inj.Resolve(&exec))

	var vs simple.Service
	require.NoError(t, inj.Resolve(&vs))

	var srvc *serial.Service
	require.NoError(t, inj.Resolve(&srvc))

	nonce, err := srvc.GetNonce(fake.NewPublicKey("alice"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)

	err = ctrl.OnStop(inj)
	require.NoError(t, err)
}

func TestMinimal_OnStop(t *testing.T) {
	ctrl := NewController()

	err := ctrl.OnStop(node.NewInjector())
	require.EqualError(t, err, "injector: couldn't find dependency for '*serial.Service'")
}

func TestBlockAction_Execute(t *testing.T) {
	action := blockAction{}

	buf := new(bytes.Buffer)
	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    node.FlagSet{"index": float64(1)},
		Out:      buf,
	}

	err := action.Execute(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for 'controller.chain'")

	ctx.Injector.Inject(fakeChain{err: fake.GetError()})

	err = action.Execute(ctx)
	require.EqualError(t, err, fake.Err("failed to read block"))

	ctx.Injector.Inject(fakeChain{block: makeBlock(t)})

	err = action.Execute(ctx)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Block 1\n  Timestamp: 42\n")
	require.Regexp(t, "\n  - [0-9a-f]{64} accepted\n", buf.String())
	require.Regexp(t, "\n  - [0-9a-f]{64} refused: oops$", buf.String())

	buf.Reset()
	ctx.Flags = node.FlagSet{"latest": true}
	ctx.Injector.Inject(fakeChain{latest: types.Block{}})

	err = action.Execute(ctx)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Block 0\n")
}

func TestVerifyAction_Execute(t *testing.T) {
	action := verifyAction{}

	buf := new(bytes.Buffer)
	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    node.FlagSet{},
		Out:      buf,
	}

	err := action.Execute(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for 'controller.chain'")

	ctx.Injector.Inject(fakeChain{err: fake.GetError()})

	err = action.Execute(ctx)
	require.EqualError(t, err, fake.GetError().Error())

	ctx.Injector.Inject(fakeChain{count: 3})

	err = action.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, "3 blocks verified", buf.String())
}

// -----------------------------------------------------------------------------
// Utility functions

func makeBlock(t *testing.T) types.Block {
	tx1, err := signed.NewTransaction(0, fake.NewPublicKey("alice"))
	require.NoError(t, err)

	tx2, err := signed.NewTransaction(1, fake.NewPublicKey("alice"))
	require.NoError(t, err)

	data := simple.NewData([]simple.TransactionResult{
		simple.NewTransactionResult(tx1, true, ""),
		simple.NewTransactionResult(tx2, false, "oops"),
	})

	block, err := types.NewBlock(data, types.WithIndex(1), types.WithTimestamp(42))
	require.NoError(t, err)

	return block
}

type fakeChain struct {
	block  types.Block
	latest types.Block
	count  uint64
	err    error
}

func (c fakeChain) GetLatest() (types.Block, error) {
	return c.latest, c.err
}

func (c fakeChain) GetBlock(uint64) (types.Block, error) {
	return c.block, c.err
}

func (c fakeChain) VerifyChain() (uint64, error) {
	return c.count, c.err
}
