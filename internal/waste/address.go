package waste

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const AddressSize = 20

// Address identifies a user account. It mirrors the 20-byte account
// identifiers used by the on-chain deployment.
type Address [AddressSize]byte

var ZeroAddress = Address{}

var ErrInvalidAddress = errors.New("invalid address")

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ParseAddress decodes a hex address, with or without the 0x prefix.
func ParseAddress(s string) (Address, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != AddressSize*2 {
		return Address{}, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidAddress, AddressSize*2, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

const HashSize = 32

// Hash is an opaque 32-byte reference, used for proof-of-collection image
// hashes and event-log digests. The ledger never interprets its content.
type Hash [HashSize]byte

var ZeroHash = Hash{}

var ErrInvalidHash = errors.New("invalid hash")

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func ParseHash(s string) (Hash, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != HashSize*2 {
		return Hash{}, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidHash, HashSize*2, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
