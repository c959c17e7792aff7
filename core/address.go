package core

// Identifier & hashing primitives (C1).
//
// Session and ALT addresses are derived deterministically so that an
// off-chain client can recompute them without a round trip to the kernel.
// Hashing uses BLAKE3 for its native 32-byte output and speed; addresses are
// rendered in base58 to match the account-handle vocabulary (ALT, PDA-style
// derivation, CPI) this kernel's host environment uses.

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/mr-tron/base58"
	"lukechampine.com/blake3"
)

var errInvalidAddressLength = errors.New("address: decoded length mismatch")

// Address is a 32-byte content-addressed account/session handle.
type Address [32]byte

// String renders the address as base58, e.g. for logging or CLI display.
func (a Address) String() string { return base58.Encode(a[:]) }

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == Address{} }

// MarshalJSON renders the address as its base58 string, matching String(),
// so introspection/CLI JSON output is readable rather than a 32-element
// byte array.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses the base58 string form produced by MarshalJSON.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a base58-encoded address.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := base58.Decode(s)
	if err != nil {
		return a, NewError(ErrBadOpProgram, err)
	}
	if len(b) != len(a) {
		return a, NewError(ErrBadOpProgram, errInvalidAddressLength)
	}
	copy(a[:], b)
	return a, nil
}

// ContentHash computes the 32-byte content hash used for guard identity and
// registry cross-checks (§4.1).
func ContentHash(data []byte) [32]byte {
	return blake3.Sum256(data)
}

// DeriveSessionAddress deterministically derives a session address from its
// owner, namespace, and nonce (§4.1). The derivation is a pure function of
// its inputs: identical inputs always yield identical output, including
// across kernel versions within a major-version boundary, which is what lets
// an off-chain SDK predict a session's address before submitting the
// CreateSession transaction.
func DeriveSessionAddress(owner Address, namespace []byte, nonce uint64) Address {
	h := blake3.New(32, nil)
	h.Write([]byte("valence-session-v1"))
	h.Write(owner[:])
	h.Write(namespace)
	var nonceBuf [8]byte
	binary.LittleEndian.PutUint64(nonceBuf[:], nonce)
	h.Write(nonceBuf[:])
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveALTAddress derives the address of a session's Account Lookup Table
// from the session address and a seed. CreateSession takes no separate ALT
// seed; it passes the session's namespace as the seed.
func DeriveALTAddress(session Address, altSeed []byte) Address {
	h := blake3.New(32, nil)
	h.Write([]byte("valence-alt-v1"))
	h.Write(session[:])
	h.Write(altSeed)
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}
