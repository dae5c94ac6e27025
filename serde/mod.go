// Package serde defines the primitives to serialize and deserialize (serde)
// the messages of the ledger.
//
// A message implements its own serialization by looking up the format engine
// registered for the format of the context. This keeps the data models free
// of any encoding concern.
package serde

import "io"

// Format is the identifier of a serialization format.
type Format string

const (
	// FormatJSON is the identifier of the JSON format.
	FormatJSON Format = "JSON"
)

// Message is the interface a data model should implement to be serialized.
type Message interface {
	// Serialize returns the bytes of the message according to the format of
	// the context.
	Serialize(ctx Context) ([]byte, error)
}

// Fingerprinter is the interface implemented by a message that can be written
// deterministically into a hash.
type Fingerprinter interface {
	Fingerprint(w io.Writer) error
}

// Factory is the interface a data model factory should implement to
// deserialize a message.
type Factory interface {
	// Deserialize returns the message instantiated from the data according to
	// the format of the context.
	Deserialize(ctx Context, data []byte) (Message, error)
}

// FormatEngine is the interface of an engine that encodes and decodes a
// specific message for a given format.
type FormatEngine interface {
	// Encode returns the bytes of the message.
	Encode(ctx Context, message Message) ([]byte, error)

	// Decode returns the message populated from the data.
	Decode(ctx Context, data []byte) (Message, error)
}
