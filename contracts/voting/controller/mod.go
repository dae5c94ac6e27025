// Package controller implements the controller of the voting contract. It
// registers the contract on the node, creates the chain from the genesis file
// and provides the commands to interact with the contract.
package controller

import (
	"time"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/contracts/voting"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/ordering/serial"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/crypto/ed25519/command"
	"golang.org/x/xerrors"
)

// GenesisFlag is the name of the start flag with the path to the genesis file.
const GenesisFlag = "genesis"

const defaultWait = 10 * time.Second

// miniController is a CLI initializer to register the voting contract.
//
// - implements node.Initializer
type miniController struct {
	timeFn func() time.Time
}

// NewController creates a new controller for the voting contract.
func NewController() node.Initializer {
	return miniController{
		timeFn: time.Now,
	}
}

// SetCommands implements node.Initializer. It sets the genesis start flag and
// the commands of the contract.
func (m miniController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(cli.StringFlag{
		Name:  GenesisFlag,
		Usage: "path to the YAML genesis file, required to create the chain",
	})

	cmd := builder.SetCommand("voting")
	cmd.SetDescription("interact with the voting contract")

	for _, tc := range txCommands {
		sub := cmd.SetSubCommand(tc.name)
		sub.SetDescription(tc.description)

		flags := []cli.Flag{
			cli.StringFlag{
				Name:     "key",
				Usage:    "path to the key file of the signer, as seen by the node",
				Required: true,
			},
			cli.DurationFlag{
				Name:  "wait",
				Usage: "maximum time to wait for the transaction to be included",
				Value: defaultWait,
			},
		}

		for _, p := range tc.params {
			flags = append(flags, p.flag())
		}

		sub.SetFlags(flags...)
		sub.SetAction(builder.MakeAction(txAction{
			cmd:        tc.cmd,
			params:     tc.params,
			loadSigner: loadSigner,
		}))
	}

	for _, rc := range readCommands {
		sub := cmd.SetSubCommand(rc.name)
		sub.SetDescription(rc.description)
		sub.SetFlags(rc.flags...)
		sub.SetAction(builder.MakeAction(readAction{read: rc.read}))
	}
}

// OnStart implements node.Initializer. It registers the contract, creates the
// chain if necessary and starts the ordering service.
func (m miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var exec *native.Service
	err := inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	voting.RegisterContract(exec, voting.NewContract())

	var srvc *serial.Service
	err = inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ordering service: %v", err)
	}

	path := flags.Path(GenesisFlag)

	var genesis serial.Genesis

	if path != "" {
		genesis, err = serial.LoadGenesis(path)
		if err != nil {
			return xerrors.Errorf("genesis: %v", err)
		}
	}

	if genesis.Timestamp == 0 {
		genesis.Timestamp = uint64(m.timeFn().Unix())
	}

	err = srvc.Setup(genesis.Timestamp, func(snap store.Snapshot) error {
		if path == "" {
			return xerrors.Errorf("flag '%s' is required to create the chain", GenesisFlag)
		}

		return voting.Initialize(snap, genesis.Owner)
	})
	if err != nil {
		return xerrors.Errorf("setup: %v", err)
	}

	err = srvc.Listen()
	if err != nil {
		return xerrors.Errorf("failed to start ordering: %v", err)
	}

	return nil
}

// OnStop implements node.Initializer. The ordering service is stopped by its
// own controller.
func (miniController) OnStop(node.Injector) error {
	return nil
}

func loadSigner(path string) (crypto.Signer, error) {
	signer, err := command.LoadSigner(path)
	if err != nil {
		return nil, err
	}

	return signer, nil
}
