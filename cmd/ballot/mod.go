// Package main implements the node of the voting ledger.
//
// A node is started with the address of the owner in the genesis file:
//
//  ballot crypto keygen --save owner.key
//  ballot --config /tmp/node start --genesis genesis.yml --httpaddr :8080
//
// The commands of the contract are then sent to the running node:
//
//  ballot --config /tmp/node voting create --key owner.key --title Board\
//    --description "election of the board" --start X --end Y --result Z
//  ballot --config /tmp/node voting elections
//
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/ballot/cli/node"
	voting "go.dedis.ch/ballot/contracts/voting/controller"
	ordering "go.dedis.ch/ballot/core/ordering/serial/controller"
	db "go.dedis.ch/ballot/core/store/kv/controller"
	"go.dedis.ch/ballot/crypto/ed25519/command"
	proxy "go.dedis.ch/ballot/proxy/http/controller"
)

type config struct {
	Channel chan os.Signal
	Writer  io.Writer
}

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return runWithCfg(args, config{Writer: os.Stdout})
}

func runWithCfg(args []string, cfg config) error {
	builder := node.NewBuilderWithCfg(
		cfg.Channel,
		cfg.Writer,
		db.NewController(),
		ordering.NewController(),
		voting.NewController(),
		proxy.NewController(),
	)

	command.Initializer{}.SetCommands(builder)

	app := builder.Build()

	return app.Run(args)
}
