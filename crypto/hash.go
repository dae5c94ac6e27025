package crypto

import (
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/sha3"
)

// HashAlgorithm is the identifier of a hash algorithm supported by the
// factory.
type HashAlgorithm int

const (
	// Sha256 is the SHA-2 hash with a 256 bits digest.
	Sha256 HashAlgorithm = iota

	// Keccak256 is the original Keccak submission with a 256 bits digest, as
	// used to derive account addresses.
	Keccak256
)

// hashFactory is a hash factory that is using SHA algorithms.
//
// - implements crypto.HashFactory
type hashFactory struct {
	hashType HashAlgorithm
}

// NewSha256Factory returns a new instance of the factory using SHA-256.
func NewSha256Factory() HashFactory {
	return hashFactory{hashType: Sha256}
}

// NewHashFactory returns a new instance of the factory.
func NewHashFactory(a HashAlgorithm) HashFactory {
	return hashFactory{hashType: a}
}

// New implements crypto.HashFactory. It returns a new Hash instance.
func (f hashFactory) New() hash.Hash {
	switch f.hashType {
	case Sha256:
		return sha256.New()
	case Keccak256:
		return sha3.NewLegacyKeccak256()
	default:
		panic("unknown hash type")
	}
}
