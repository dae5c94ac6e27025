// Package registry defines the format registry mechanism.
//
// It also provides a default implementation that always returns a format
// engine: an unknown format is served by an engine failing every call.
package registry

import "go.dedis.ch/ballot/serde"

// Registry is an interface to register and get format engines for a specific
// format.
type Registry interface {
	// Register takes a format and its engine and it registers them so that the
	// engine can be looked up later.
	Register(serde.Format, serde.FormatEngine)

	// Get returns the engine associated with the format.
	Get(serde.Format) serde.FormatEngine
}
