// Package crypto defines the cryptographic primitives used to identify the
// participants of the ledger and to sign their transactions.
package crypto

import (
	"encoding"
	"hash"

	"go.dedis.ch/ballot/serde"
)

// HashFactory is an interface to produce a hash digest.
type HashFactory interface {
	New() hash.Hash
}

// PublicKey is a public identity that can be used to verify a signature.
type PublicKey interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler
	serde.Message

	// Verify returns nil if the signature matches the message, otherwise an
	// error is returned.
	Verify(msg []byte, signature Signature) error

	// Equal returns true when the other object is the same public key.
	Equal(other interface{}) bool
}

// PublicKeyFactory is a factory to create public keys.
type PublicKeyFactory interface {
	serde.Factory

	// PublicKeyOf populates the public key associated to the data if
	// appropriate, otherwise it returns an error.
	PublicKeyOf(serde.Context, []byte) (PublicKey, error)

	// FromBytes returns the public key associated to the data if
	// appropriate, otherwise it returns an error.
	FromBytes(data []byte) (PublicKey, error)
}

// Signature is a verifiable element for a unique message.
type Signature interface {
	encoding.BinaryMarshaler
	serde.Message

	// Equal returns true when both signatures are the same.
	Equal(other Signature) bool
}

// SignatureFactory is a factory to create signatures.
type SignatureFactory interface {
	serde.Factory

	// SignatureOf returns a signature associated with the data if appropriate,
	// otherwise it returns an error.
	SignatureOf(serde.Context, []byte) (Signature, error)
}

// Signer provides the primitives to sign and verify signatures.
type Signer interface {
	encoding.BinaryMarshaler

	// GetPublicKey returns the public key of the signer.
	GetPublicKey() PublicKey

	// Sign returns a signature of the message.
	Sign(msg []byte) (Signature, error)
}
