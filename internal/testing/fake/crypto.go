package fake

import (
	"bytes"
	"hash"

	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
)

// PublicKey is a fake implementation of a public key. Two keys with different
// names are different identities.
//
// - implements crypto.PublicKey
type PublicKey struct {
	Name string

	err       error
	verifyErr error
}

// NewPublicKey returns a fake public key for the name.
func NewPublicKey(name string) PublicKey {
	return PublicKey{Name: name}
}

// NewBadPublicKey returns a public key that fails to marshal.
func NewBadPublicKey() PublicKey {
	return PublicKey{err: fakeErr, verifyErr: fakeErr}
}

// NewInvalidPublicKey returns a public key that marshals but never verifies a
// signature.
func NewInvalidPublicKey() PublicKey {
	return PublicKey{verifyErr: fakeErr}
}

// Verify implements crypto.PublicKey.
func (pk PublicKey) Verify([]byte, crypto.Signature) error {
	return pk.verifyErr
}

// Equal implements crypto.PublicKey.
func (pk PublicKey) Equal(other interface{}) bool {
	o, ok := other.(PublicKey)
	return ok && o.Name == pk.Name
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return []byte(pk.text()), pk.err
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.text()), pk.err
}

// Serialize implements serde.Message.
func (pk PublicKey) Serialize(serde.Context) ([]byte, error) {
	return GetFakeFormatValue(), pk.err
}

// String implements fmt.Stringer.
func (pk PublicKey) String() string {
	return pk.text()
}

func (pk PublicKey) text() string {
	if pk.Name == "" {
		return "fake.PublicKey"
	}

	return "fake.PublicKey:" + pk.Name
}

// PublicKeyFactory is a fake implementation of a public key factory.
//
// - implements crypto.PublicKeyFactory
type PublicKeyFactory struct {
	pubkey PublicKey
	err    error
}

// NewPublicKeyFactory returns a factory that returns the given key.
func NewPublicKeyFactory(pubkey PublicKey) PublicKeyFactory {
	return PublicKeyFactory{pubkey: pubkey}
}

// NewBadPublicKeyFactory returns a factory that always fails.
func NewBadPublicKeyFactory() PublicKeyFactory {
	return PublicKeyFactory{err: fakeErr}
}

// Deserialize implements serde.Factory.
func (f PublicKeyFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.PublicKeyOf(ctx, data)
}

// PublicKeyOf implements crypto.PublicKeyFactory.
func (f PublicKeyFactory) PublicKeyOf(serde.Context, []byte) (crypto.PublicKey, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.pubkey, nil
}

// FromBytes implements crypto.PublicKeyFactory.
func (f PublicKeyFactory) FromBytes([]byte) (crypto.PublicKey, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.pubkey, nil
}

// Signature is a fake implementation of a signature.
//
// - implements crypto.Signature
type Signature struct {
	data []byte
	err  error
}

// NewBadSignature returns a signature that fails to marshal.
func NewBadSignature() Signature {
	return Signature{err: fakeErr}
}

// Equal implements crypto.Signature.
func (s Signature) Equal(o crypto.Signature) bool {
	other, ok := o.(Signature)
	return ok && bytes.Equal(other.data, s.data)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Signature) MarshalBinary() ([]byte, error) {
	return []byte("fake.Signature"), s.err
}

// Serialize implements serde.Message.
func (s Signature) Serialize(serde.Context) ([]byte, error) {
	return GetFakeFormatValue(), s.err
}

// SignatureFactory is a fake implementation of a signature factory.
//
// - implements crypto.SignatureFactory
type SignatureFactory struct {
	signature Signature
	err       error
}

// NewSignatureFactory returns a factory that returns the given signature.
func NewSignatureFactory(s Signature) SignatureFactory {
	return SignatureFactory{signature: s}
}

// NewBadSignatureFactory returns a factory that always fails.
func NewBadSignatureFactory() SignatureFactory {
	return SignatureFactory{err: fakeErr}
}

// Deserialize implements serde.Factory.
func (f SignatureFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.SignatureOf(ctx, data)
}

// SignatureOf implements crypto.SignatureFactory.
func (f SignatureFactory) SignatureOf(serde.Context, []byte) (crypto.Signature, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.signature, nil
}

// Signer is a fake implementation of a signer.
//
// - implements crypto.Signer
type Signer struct {
	pubkey PublicKey
	err    error
}

// NewSigner returns a signer for the fake public key of the given name.
func NewSigner(name string) Signer {
	return Signer{pubkey: NewPublicKey(name)}
}

// NewBadSigner returns a signer that fails to sign.
func NewBadSigner() Signer {
	return Signer{err: fakeErr}
}

// GetPublicKey implements crypto.Signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return s.pubkey
}

// Sign implements crypto.Signer.
func (s Signer) Sign([]byte) (crypto.Signature, error) {
	return Signature{}, s.err
}

// MarshalBinary implements crypto.Signer.
func (s Signer) MarshalBinary() ([]byte, error) {
	return []byte(s.pubkey.Name), s.err
}

// HashFactory is a fake implementation of a hash factory.
//
// - implements crypto.HashFactory
type HashFactory struct {
	err error
}

// NewBadHashFactory returns a hash factory whose hashes fail to write.
func NewBadHashFactory() HashFactory {
	return HashFactory{err: fakeErr}
}

// New implements crypto.HashFactory.
func (f HashFactory) New() hash.Hash {
	return &Hash{err: f.err}
}

// Hash is a fake hash implementation.
//
// - implements hash.Hash
type Hash struct {
	hash.Hash
	err error
}

// Write implements hash.Hash.
func (h *Hash) Write([]byte) (int, error) {
	return 0, h.err
}

// Sum implements hash.Hash.
func (h *Hash) Sum([]byte) []byte {
	return []byte{}
}
