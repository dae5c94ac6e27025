// Package controller implements a controller for the HTTP proxy.
package controller

import (
	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/core/ordering/serial"
	"go.dedis.ch/ballot/proxy/http"
	"golang.org/x/xerrors"
)

// AddrFlag is the name of the start flag with the address of the proxy.
const AddrFlag = "httpaddr"

// minimal is an initializer that starts the HTTP proxy when an address is set.
//
// - implements node.Initializer
type minimal struct{}

// NewController returns a new initializer for the proxy.
func NewController() node.Initializer {
	return minimal{}
}

// SetCommands implements node.Initializer. It sets the start flag of the
// address and a command to print it.
func (minimal) SetCommands(builder node.Builder) {
	builder.SetStartFlags(cli.StringFlag{
		Name:  AddrFlag,
		Usage: "address of the HTTP proxy, which is disabled when empty",
	})

	cmd := builder.SetCommand("proxy")
	cmd.SetDescription("inspect the HTTP proxy")

	sub := cmd.SetSubCommand("addr")
	sub.SetDescription("print the address of the HTTP proxy")
	sub.SetAction(builder.MakeAction(addrAction{}))
}

// OnStart implements node.Initializer. It creates, starts and injects the
// proxy.
func (minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	addr := flags.String(AddrFlag)
	if addr == "" {
		return nil
	}

	var srvc *serial.Service
	err := inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	proxy := http.NewHTTP(addr, srvc)

	err = proxy.Listen()
	if err != nil {
		return xerrors.Errorf("failed to start proxy: %v", err)
	}

	inj.Inject(proxy)

	return nil
}

// OnStop implements node.Initializer. It stops the proxy if it is running.
func (minimal) OnStop(inj node.Injector) error {
	var proxy *http.HTTP
	err := inj.Resolve(&proxy)
	if err != nil {
		return nil
	}

	err = proxy.Stop()
	if err != nil {
		return xerrors.Errorf("failed to stop proxy: %v", err)
	}

	return nil
}
