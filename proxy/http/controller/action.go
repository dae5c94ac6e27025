package controller

import (
	"fmt"

	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/proxy"
	"golang.org/x/xerrors"
)

// addrAction is an action to print the address of the proxy.
//
// - implements node.ActionTemplate
type addrAction struct{}

// Execute implements node.ActionTemplate.
func (addrAction) Execute(ctx node.Context) error {
	var p proxy.Proxy
	err := ctx.Injector.Resolve(&p)
	if err != nil {
		return xerrors.Errorf("proxy is not running: %v", err)
	}

	addr := p.GetAddr()
	if addr == nil {
		return xerrors.New("proxy is not listening")
	}

	fmt.Fprintf(ctx.Out, "http://%s", addr)

	return nil
}
