// Package controller implements a controller for the serial ordering service.
//
// It creates the execution, validation and ordering services of the node when
// it starts. The contracts are registered to the native execution by their own
// controllers, which are also responsible for setting up the chain.
package controller

import (
	"time"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/ordering/serial"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn/pool/mem"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/core/validation/simple"
	"golang.org/x/xerrors"
)

// BlockTimeFlag is the name of the start flag that sets the time to wait for
// transactions before creating a block.
const BlockTimeFlag = "blocktime"

const defaultBlockTime = 500 * time.Millisecond

// minimal is the initializer of the ordering service.
//
// - implements node.Initializer
type minimal struct{}

// NewController creates a new controller for the ordering service.
func NewController() node.Initializer {
	return minimal{}
}

// SetCommands implements node.Initializer. It sets the start flag of the block
// time and the commands to inspect the chain.
func (minimal) SetCommands(builder node.Builder) {
	builder.SetStartFlags(cli.DurationFlag{
		Name:  BlockTimeFlag,
		Usage: "time to wait for transactions before creating a block",
		Value: defaultBlockTime,
	})

	cmd := builder.SetCommand("ordering")
	cmd.SetDescription("inspect the chain of blocks")

	sub := cmd.SetSubCommand("block")
	sub.SetDescription("print a block and the results of its transactions")
	sub.SetFlags(
		cli.Uint64Flag{
			Name:  "index",
			Usage: "index of the block",
		},
		cli.BoolFlag{
			Name:  "latest",
			Usage: "print the last block of the chain",
		},
	)
	sub.SetAction(builder.MakeAction(blockAction{}))

	sub = cmd.SetSubCommand("verify")
	sub.SetDescription("verify the links of the whole chain")
	sub.SetAction(builder.MakeAction(verifyAction{}))
}

// OnStart implements node.Initializer. It creates the services and injects
// them. The ordering service does not process transactions before the chain
// is set up.
func (minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	exec := native.NewExecution()
	vs := simple.NewService(exec, signed.NewTransactionFactory())

	opts := []serial.ServiceOption{}

	blockTime := flags.Duration(BlockTimeFlag)
	if blockTime > 0 {
		opts = append(opts, serial.WithBlockTime(blockTime))
	}

	srvc, err := serial.NewService(db, mem.NewPool(), vs, opts...)
	if err != nil {
		return xerrors.Errorf("service: %v", err)
	}

	inj.Inject(exec)
	inj.Inject(vs)
	inj.Inject(srvc)

	return nil
}

// OnStop implements node.Initializer. It stops the ordering service.
func (minimal) OnStop(inj node.Injector) error {
	var srvc *serial.Service
	err := inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = srvc.Close()
	if err != nil {
		return xerrors.Errorf("while closing service: %v", err)
	}

	return nil
}
