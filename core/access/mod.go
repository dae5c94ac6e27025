// Package access defines how a signer is identified on the ledger.
//
// Every participant is known by an address derived from its public key. The
// address is what the contracts store and compare, so that an identity never
// has to be deserialized by a contract.
package access

import (
	"encoding"
	"encoding/hex"
	"regexp"
	"strings"

	"go.dedis.ch/ballot/crypto"
	"golang.org/x/xerrors"
)

// AddressLength is the number of bytes of an address.
const AddressLength = 20

var addressRegexp = regexp.MustCompile("^0x[0-9a-f]{40}$")

// Identity is an abstraction to uniquely identify a signer.
type Identity interface {
	encoding.TextMarshaler

	// Equal returns true when the other object is the same identity.
	Equal(other interface{}) bool
}

// Address is the textual representation of an identity, in the form of a
// lower-case hexadecimal string prefixed with 0x.
type Address string

var addressHash = crypto.NewHashFactory(crypto.Keccak256)

// AddressOf returns the address of the identity. It is made of the last bytes
// of the Keccak-256 digest of the identity text.
func AddressOf(ident Identity) (Address, error) {
	text, err := ident.MarshalText()
	if err != nil {
		return "", xerrors.Errorf("failed to marshal identity: %v", err)
	}

	h := addressHash.New()
	h.Write(text)
	digest := h.Sum(nil)

	return Address("0x" + hex.EncodeToString(digest[len(digest)-AddressLength:])), nil
}

// ParseAddress returns the address of the text if it is well-formed. The input
// is case-insensitive.
func ParseAddress(text string) (Address, error) {
	addr := strings.ToLower(strings.TrimSpace(text))

	if !addressRegexp.MatchString(addr) {
		return "", xerrors.Errorf("malformed address '%s'", text)
	}

	return Address(addr), nil
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return string(a)
}
