package ledger

import (
	"fmt"

	"github.com/lunfardo314/epochledger"
	"github.com/lunfardo314/epochledger/lazyslice"
)

// Output is immutable value locked with the address of the owner.
// Amount is signed to make negative amounts representable; validation rejects them
type Output struct {
	amount  int64
	address Address
}

const (
	outputBlockAmount = iota
	outputBlockAddress
	outputNumBlocks
)

type OutputWithID struct {
	ID     OutputID
	Output *Output
}

func NewOutput(amount int64, addr Address) *Output {
	return &Output{
		amount:  amount,
		address: addr,
	}
}

func OutputFromBytes(data []byte) (*Output, error) {
	arr, err := lazyslice.ParseArrayOfSize(data, outputNumBlocks)
	if err != nil {
		return nil, fmt.Errorf("OutputFromBytes: %w", err)
	}
	amount, err := epochledger.DecodeIntegerStrict[int64](arr.At(outputBlockAmount))
	if err != nil {
		return nil, fmt.Errorf("OutputFromBytes: wrong amount: %w", err)
	}
	addr, err := AddressFromBytes(arr.At(outputBlockAddress))
	if err != nil {
		return nil, fmt.Errorf("OutputFromBytes: %w", err)
	}
	return NewOutput(amount, addr), nil
}

func (o *Output) Amount() int64 {
	return o.amount
}

func (o *Output) Address() Address {
	return o.address
}

func (o *Output) Bytes() []byte {
	return lazyslice.MakeArray(epochledger.EncodeInteger(o.amount), o.address.Bytes()).Bytes()
}

func (o *Output) String() string {
	return fmt.Sprintf("%d -> %s", o.amount, o.address.String())
}
