// Package proxy defines the interface of the servers that expose the ledger to
// the clients outside of the node.
package proxy

import "net"

// Proxy defines the primitives of a server that handles the requests of the
// clients.
type Proxy interface {
	// Listen starts the server in the background. It returns once the server
	// is ready to accept connections.
	Listen() error

	// Stop stops the server and closes the open connections.
	Stop() error

	// GetAddr returns the address the server is listening on, or nil if it is
	// not running.
	GetAddr() net.Addr
}
