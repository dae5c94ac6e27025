package controller

import (
	"encoding/hex"
	"fmt"
	"strings"

	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/core/ordering/serial/types"
	"golang.org/x/xerrors"
)

// chain is the part of the ordering service the actions read from.
type chain interface {
	GetLatest() (types.Block, error)
	GetBlock(index uint64) (types.Block, error)
	VerifyChain() (uint64, error)
}

// blockAction is an action to print a block of the chain.
//
// - implements node.ActionTemplate
type blockAction struct{}

// Execute implements node.ActionTemplate. It prints the block at the index, or
// the latest one.
func (blockAction) Execute(ctx node.Context) error {
	var c chain
	err := ctx.Injector.Resolve(&c)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var block types.Block

	if ctx.Flags.Bool("latest") {
		block, err = c.GetLatest()
	} else {
		block, err = c.GetBlock(ctx.Flags.Uint64("index"))
	}

	if err != nil {
		return xerrors.Errorf("failed to read block: %v", err)
	}

	out := new(strings.Builder)

	fmt.Fprintf(out, "Block %d\n", block.GetIndex())
	fmt.Fprintf(out, "  Timestamp: %d\n", block.GetTimestamp())
	fmt.Fprintf(out, "  Hash: %x\n", block.GetHash())
	fmt.Fprintf(out, "  Previous: %x\n", block.GetPrevious())
	fmt.Fprintf(out, "  State: %x", block.GetStateHash())

	if block.GetData() != nil {
		for _, res := range block.GetData().GetTransactionResults() {
			accepted, reason := res.GetStatus()

			status := "accepted"
			if !accepted {
				status = "refused: " + reason
			}

			id := hex.EncodeToString(res.GetTransaction().GetID())

			fmt.Fprintf(out, "\n  - %s %s", id, status)
		}
	}

	// The client prints each write on its own line.
	fmt.Fprint(ctx.Out, out.String())

	return nil
}

// verifyAction is an action to verify the links of the chain.
//
// - implements node.ActionTemplate
type verifyAction struct{}

// Execute implements node.ActionTemplate. It verifies the chain and prints the
// number of blocks.
func (verifyAction) Execute(ctx node.Context) error {
	var c chain
	err := ctx.Injector.Resolve(&c)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	count, err := c.VerifyChain()
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "%d blocks verified", count)

	return nil
}
