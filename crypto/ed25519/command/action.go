package command

import (
	"fmt"
	"io"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/crypto/loader"
	"golang.org/x/xerrors"
)

// action defines the cli actions of the crypto commands. The dependencies are
// fields so that the actions can be tested.
type action struct {
	printer   io.Writer
	newLoader func(path string) loader.Loader
	removeFn  func(path string) error
}

func (a action) keygenAction(flags cli.Flags) error {
	path := flags.String("save")

	if path == "" {
		data, err := ed25519.NewSigner().MarshalBinary()
		if err != nil {
			return xerrors.Errorf("failed to marshal signer: %v", err)
		}

		fmt.Fprintf(a.printer, "%x\n", data)

		return nil
	}

	l := a.newLoader(path)

	_, err := l.Load()
	if err == nil {
		if !flags.Bool("force") {
			return xerrors.Errorf("file '%s' already exists, use --force to overwrite", path)
		}

		err = a.removeFn(path)
		if err != nil {
			return xerrors.Errorf("failed to remove key: %v", err)
		}
	}

	data, err := l.LoadOrCreate(generator{})
	if err != nil {
		return xerrors.Errorf("failed to create key: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return a.printIdentity(signer)
}

func (a action) addressAction(flags cli.Flags) error {
	signer, err := loadSigner(a.newLoader(flags.String("key")))
	if err != nil {
		return err
	}

	return a.printIdentity(signer)
}

func (a action) printIdentity(signer ed25519.Signer) error {
	addr, err := access.AddressOf(signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("failed to get address: %v", err)
	}

	fmt.Fprintf(a.printer, "Address: %s\n", addr)
	fmt.Fprintf(a.printer, "Public key: %v\n", signer.GetPublicKey())

	return nil
}

func loadSigner(l loader.Loader) (ed25519.Signer, error) {
	data, err := l.Load()
	if err != nil {
		return ed25519.Signer{}, xerrors.Errorf("failed to load key: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return ed25519.Signer{}, xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return signer, nil
}

// generator creates new ed25519 keys.
//
// - implements loader.Generator
type generator struct{}

// Generate implements loader.Generator. It returns the binary form of a new
// signer.
func (generator) Generate() ([]byte, error) {
	return ed25519.NewSigner().MarshalBinary()
}
