// Package command defines the commands to manage the ed25519 keys of the
// participants of the ledger.
package command

import (
	"os"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/crypto/loader"
)

// Initializer populates a builder with the crypto commands. The commands run
// locally and do not need a running node.
type Initializer struct{}

// SetCommands sets the crypto commands on the builder.
func (Initializer) SetCommands(builder cli.Builder) {
	a := action{
		printer: os.Stdout,
		newLoader: func(path string) loader.Loader {
			return loader.NewFileLoader(path)
		},
		removeFn: os.Remove,
	}

	cmd := builder.SetCommand("crypto")
	cmd.SetDescription("manage the keys of the participants")

	sub := cmd.SetSubCommand("keygen")
	sub.SetDescription("generate a new ed25519 key")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "save",
			Usage: "path of the key file, or print the key when empty",
		},
		cli.BoolFlag{
			Name:  "force",
			Usage: "overwrite the existing key file",
		},
	)
	sub.SetAction(a.keygenAction)

	sub = cmd.SetSubCommand("address")
	sub.SetDescription("print the address and the public key of a key file")
	sub.SetFlags(cli.StringFlag{
		Name:     "key",
		Usage:    "path of the key file",
		Required: true,
	})
	sub.SetAction(a.addressAction)
}

// LoadSigner reads the key file at the path and returns the signer.
func LoadSigner(path string) (ed25519.Signer, error) {
	return loadSigner(loader.NewFileLoader(path))
}
