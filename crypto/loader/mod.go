// Package loader defines the abstraction to persist the private key of a
// participant so that the same identity is used across invocations of the
// command-line.
package loader

// Generator is the interface to implement to create the data of a key when it
// does not exist yet.
type Generator interface {
	// Generate returns the binary form of a new key.
	Generate() ([]byte, error)
}

// Loader is the interface to load the binary form of a key from a storage.
type Loader interface {
	// LoadOrCreate loads the data of the key if it exists, otherwise it uses
	// the generator to create it and stores the result.
	LoadOrCreate(g Generator) ([]byte, error)

	// Load returns the data of the key, or an error if it does not exist.
	Load() ([]byte, error)
}
