package ledger

import (
	"fmt"
	"strings"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/epochledger/lazyslice"
	"golang.org/x/crypto/blake2b"
)

const (
	MaxInputs  = 256
	MaxOutputs = 256
)

const (
	txBranchInputs = iota
	txBranchOutputs
	txNumBranches
)

const (
	inputBlockOutputID = iota
	inputBlockSignature
	inputNumBlocks
)

type (
	// Input claims unspent output and carries signature of the owner of that output
	Input struct {
		oid       OutputID
		signature []byte
	}

	// Transaction is immutable. The ID is blake2b-256 of the canonical bytes, signatures included
	Transaction struct {
		inputs  []*Input
		outputs []*Output
		bytes   []byte
		id      TransactionID
	}
)

func NewInput(oid OutputID, signature []byte) *Input {
	return &Input{
		oid:       oid,
		signature: append([]byte{}, signature...),
	}
}

func (inp *Input) OutputID() OutputID {
	return inp.oid
}

func (inp *Input) Signature() []byte {
	return append([]byte{}, inp.signature...)
}

func (inp *Input) Bytes() []byte {
	return lazyslice.MakeArray(inp.oid[:], inp.signature).Bytes()
}

func inputFromBytes(data []byte) (*Input, error) {
	arr, err := lazyslice.ParseArrayOfSize(data, inputNumBlocks)
	if err != nil {
		return nil, err
	}
	oid, err := OutputIDFromBytes(arr.At(inputBlockOutputID))
	if err != nil {
		return nil, err
	}
	return NewInput(oid, arr.At(inputBlockSignature)), nil
}

// NewTransaction makes immutable transaction. Slices are copied
func NewTransaction(inputs []*Input, outputs []*Output) (*Transaction, error) {
	if len(inputs) > MaxInputs {
		return nil, fmt.Errorf("NewTransaction: too many inputs: %d", len(inputs))
	}
	if len(outputs) > MaxOutputs {
		return nil, fmt.Errorf("NewTransaction: too many outputs: %d", len(outputs))
	}
	ret := &Transaction{
		inputs:  make([]*Input, len(inputs)),
		outputs: make([]*Output, len(outputs)),
	}
	copy(ret.inputs, inputs)
	copy(ret.outputs, outputs)

	inps := lazyslice.EmptyArray(MaxInputs)
	for _, inp := range ret.inputs {
		inps.Push(inp.Bytes())
	}
	ret.bytes = lazyslice.MakeArray(inps.Bytes(), outputsBytes(ret.outputs)).Bytes()
	ret.id = blake2b.Sum256(ret.bytes)
	return ret, nil
}

func MustNewTransaction(inputs []*Input, outputs []*Output) *Transaction {
	ret, err := NewTransaction(inputs, outputs)
	easyfl.AssertNoError(err)
	return ret
}

func TransactionFromBytes(data []byte) (*Transaction, error) {
	arr, err := lazyslice.ParseArrayOfSize(data, txNumBranches)
	if err != nil {
		return nil, fmt.Errorf("TransactionFromBytes: %w", err)
	}
	inps, err := lazyslice.ParseArray(arr.At(txBranchInputs), MaxInputs)
	if err != nil {
		return nil, fmt.Errorf("TransactionFromBytes: inputs: %w", err)
	}
	outs, err := lazyslice.ParseArray(arr.At(txBranchOutputs), MaxOutputs)
	if err != nil {
		return nil, fmt.Errorf("TransactionFromBytes: outputs: %w", err)
	}
	inputs := make([]*Input, inps.NumElements())
	for i := range inputs {
		if inputs[i], err = inputFromBytes(inps.At(i)); err != nil {
			return nil, fmt.Errorf("TransactionFromBytes: input #%d: %w", i, err)
		}
	}
	outputs := make([]*Output, outs.NumElements())
	for i := range outputs {
		if outputs[i], err = OutputFromBytes(outs.At(i)); err != nil {
			return nil, fmt.Errorf("TransactionFromBytes: output #%d: %w", i, err)
		}
	}
	return NewTransaction(inputs, outputs)
}

func outputsBytes(outputs []*Output) []byte {
	outs := lazyslice.EmptyArray(MaxOutputs)
	for _, o := range outputs {
		outs.Push(o.Bytes())
	}
	return outs.Bytes()
}

// DataToSign is the payload signed by the owner of the consumed output.
// It commits to the claimed output and to all outputs of the transaction
func DataToSign(oid OutputID, outputs []*Output) []byte {
	return lazyslice.MakeArray(oid[:], outputsBytes(outputs)).Bytes()
}

func (tx *Transaction) ID() TransactionID {
	return tx.id
}

func (tx *Transaction) IDString() string {
	return tx.id.String()
}

// Bytes returns canonical bytes of the transaction
func (tx *Transaction) Bytes() []byte {
	return append([]byte{}, tx.bytes...)
}

func (tx *Transaction) NumInputs() int {
	return len(tx.inputs)
}

func (tx *Transaction) NumOutputs() int {
	return len(tx.outputs)
}

func (tx *Transaction) Input(idx int) *Input {
	return tx.inputs[idx]
}

func (tx *Transaction) Output(idx int) *Output {
	return tx.outputs[idx]
}

// DataToSign returns signable payload for the input at index idx
func (tx *Transaction) DataToSign(idx int) []byte {
	return DataToSign(tx.inputs[idx].oid, tx.outputs)
}

func (tx *Transaction) ForEachInput(fun func(idx byte, inp *Input) bool) {
	for i, inp := range tx.inputs {
		if !fun(byte(i), inp) {
			return
		}
	}
}

func (tx *Transaction) ForEachOutput(fun func(idx byte, o *Output) bool) {
	for i, o := range tx.outputs {
		if !fun(byte(i), o) {
			return
		}
	}
}

// ProducedOutputID is the ID the output at idx will have in the ledger
func (tx *Transaction) ProducedOutputID(idx byte) OutputID {
	return NewOutputID(tx.id, idx)
}

// OutputSum is the sum of all output amounts. Returns false on overflow
func (tx *Transaction) OutputSum() (int64, bool) {
	var ret int64
	for _, o := range tx.outputs {
		var ok bool
		if ret, ok = AddAmounts(ret, o.Amount()); !ok {
			return 0, false
		}
	}
	return ret, true
}

func (tx *Transaction) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "tx %s\n", tx.id.String())
	for i, inp := range tx.inputs {
		fmt.Fprintf(&buf, "   in #%d: %s\n", i, inp.oid.String())
	}
	for i, o := range tx.outputs {
		fmt.Fprintf(&buf, "   out #%d: %s\n", i, o.String())
	}
	return buf.String()
}
