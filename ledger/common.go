package ledger

import (
	"errors"
	"fmt"

	"github.com/lunfardo314/easyfl"
)

const (
	TransactionIDLength = 32
	OutputIDLength      = TransactionIDLength + 1
)

// GenesisOutputID is an all-0 outputID
var GenesisOutputID OutputID

type (
	TransactionID [TransactionIDLength]byte
	// OutputID references output by the ID of the producing transaction and the index of the output in it
	OutputID [OutputIDLength]byte
)

func TransactionIDFromBytes(data []byte) (ret TransactionID, err error) {
	if len(data) != TransactionIDLength {
		err = errors.New("TransactionIDFromBytes: wrong data length")
		return
	}
	copy(ret[:], data)
	return
}

func (txid *TransactionID) Bytes() []byte {
	return txid[:]
}

func (txid *TransactionID) String() string {
	return easyfl.Fmt(txid[:])
}

// Short is a prefix of the ID, for logging
func (txid *TransactionID) Short() string {
	return easyfl.Fmt(txid[:6]) + ".."
}

func NewOutputID(id TransactionID, idx byte) (ret OutputID) {
	copy(ret[:TransactionIDLength], id[:])
	ret[TransactionIDLength] = idx
	return
}

func OutputIDFromBytes(data []byte) (ret OutputID, err error) {
	if len(data) != OutputIDLength {
		err = errors.New("OutputIDFromBytes: wrong data length")
		return
	}
	copy(ret[:], data)
	return
}

func (oid *OutputID) String() string {
	txid := oid.TransactionID()
	return fmt.Sprintf("[%d]%s", oid.Index(), txid.String())
}

func (oid *OutputID) TransactionID() (ret TransactionID) {
	copy(ret[:], oid[:TransactionIDLength])
	return
}

func (oid *OutputID) Index() byte {
	return oid[TransactionIDLength]
}

func (oid *OutputID) Bytes() []byte {
	return oid[:]
}
