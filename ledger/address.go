package ledger

import (
	"crypto/ed25519"
	"errors"

	"github.com/lunfardo314/easyfl"
)

const AddressLength = ed25519.PublicKeySize

// Address is the ed25519 public key of the owner.
// Signatures are verified against the address directly
type Address [AddressLength]byte

func AddressFromPublicKey(pubKey ed25519.PublicKey) (ret Address) {
	easyfl.Assert(len(pubKey) == ed25519.PublicKeySize, "AddressFromPublicKey: wrong public key size %d", len(pubKey))
	copy(ret[:], pubKey)
	return
}

func AddressFromBytes(data []byte) (ret Address, err error) {
	if len(data) != AddressLength {
		err = errors.New("AddressFromBytes: wrong data length")
		return
	}
	copy(ret[:], data)
	return
}

func (a Address) PublicKey() ed25519.PublicKey {
	return a[:]
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) String() string {
	return easyfl.Fmt(a[:])
}
