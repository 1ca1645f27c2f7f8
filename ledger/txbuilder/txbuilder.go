package txbuilder

import (
	"crypto/ed25519"
	"fmt"
	"sort"

	"github.com/lunfardo314/epochledger/ledger"
)

type (
	TransactionBuilder struct {
		inputs  []ledger.OutputID
		outputs []*ledger.Output
	}

	// Signer signs payload of the input at idx
	Signer func(idx int, payload []byte) []byte
)

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		inputs:  make([]ledger.OutputID, 0),
		outputs: make([]*ledger.Output, 0),
	}
}

func (b *TransactionBuilder) NumInputs() int {
	return len(b.inputs)
}

func (b *TransactionBuilder) NumOutputs() int {
	return len(b.outputs)
}

func (b *TransactionBuilder) ConsumeOutput(oid ledger.OutputID) (byte, error) {
	if b.NumInputs() >= ledger.MaxInputs {
		return 0, fmt.Errorf("too many consumed outputs")
	}
	b.inputs = append(b.inputs, oid)
	return byte(len(b.inputs) - 1), nil
}

func (b *TransactionBuilder) ProduceOutput(out *ledger.Output) (byte, error) {
	if b.NumOutputs() >= ledger.MaxOutputs {
		return 0, fmt.Errorf("too many produced outputs")
	}
	b.outputs = append(b.outputs, out)
	return byte(len(b.outputs) - 1), nil
}

// WithInput is a chained version of ConsumeOutput. Panics on too many inputs
func (b *TransactionBuilder) WithInput(oids ...ledger.OutputID) *TransactionBuilder {
	for _, oid := range oids {
		if _, err := b.ConsumeOutput(oid); err != nil {
			panic(err)
		}
	}
	return b
}

// WithOutput is a chained version of ProduceOutput. Panics on too many outputs
func (b *TransactionBuilder) WithOutput(amount int64, target ledger.Address) *TransactionBuilder {
	if _, err := b.ProduceOutput(ledger.NewOutput(amount, target)); err != nil {
		panic(err)
	}
	return b
}

// DataToSign returns payload to be signed for the input at idx
func (b *TransactionBuilder) DataToSign(idx int) []byte {
	return ledger.DataToSign(b.inputs[idx], b.outputs)
}

// BuildWithSigner makes transaction with signatures returned by the signer
func (b *TransactionBuilder) BuildWithSigner(signer Signer) (*ledger.Transaction, error) {
	inputs := make([]*ledger.Input, len(b.inputs))
	for i, oid := range b.inputs {
		inputs[i] = ledger.NewInput(oid, signer(i, b.DataToSign(i)))
	}
	return ledger.NewTransaction(inputs, b.outputs)
}

// Sign signs each input with the corresponding private key. If only one key is provided, it signs all inputs
func (b *TransactionBuilder) Sign(keys ...ed25519.PrivateKey) (*ledger.Transaction, error) {
	if len(keys) != 1 && len(keys) != len(b.inputs) {
		return nil, fmt.Errorf("expected 1 or %d private keys, got %d", len(b.inputs), len(keys))
	}
	return b.BuildWithSigner(func(idx int, payload []byte) []byte {
		if len(keys) == 1 {
			return ed25519.Sign(keys[0], payload)
		}
		return ed25519.Sign(keys[idx], payload)
	})
}

func (b *TransactionBuilder) MustSign(keys ...ed25519.PrivateKey) *ledger.Transaction {
	ret, err := b.Sign(keys...)
	if err != nil {
		panic(err)
	}
	return ret
}

//---------------------------------------------------------

type ED25519TransferInputs struct {
	SenderPrivateKey ed25519.PrivateKey
	SenderPublicKey  ed25519.PublicKey
	SenderAddress    ledger.Address
	Outputs          []*ledger.OutputWithID
	Target           ledger.Address
	Amount           int64
	Fee              int64
}

func NewED25519TransferInputs(senderKey ed25519.PrivateKey) *ED25519TransferInputs {
	sourcePubKey := senderKey.Public().(ed25519.PublicKey)
	return &ED25519TransferInputs{
		SenderPrivateKey: senderKey,
		SenderPublicKey:  sourcePubKey,
		SenderAddress:    ledger.AddressFromPublicKey(sourcePubKey),
	}
}

func (t *ED25519TransferInputs) WithTarget(addr ledger.Address) *ED25519TransferInputs {
	t.Target = addr
	return t
}

func (t *ED25519TransferInputs) WithAmount(amount int64) *ED25519TransferInputs {
	t.Amount = amount
	return t
}

// WithFee leaves fee unclaimed by outputs
func (t *ED25519TransferInputs) WithFee(fee int64) *ED25519TransferInputs {
	t.Fee = fee
	return t
}

func (t *ED25519TransferInputs) WithOutputs(outs []*ledger.OutputWithID) *ED25519TransferInputs {
	t.Outputs = outs
	return t
}

// SortOutputs orders outputs by amount, the biggest first by default. Ties are ordered by output ID
func SortOutputs(outs []*ledger.OutputWithID, asc ...bool) {
	ascending := len(asc) > 0 && asc[0]
	sort.Slice(outs, func(i, j int) bool {
		ai, aj := outs[i].Output.Amount(), outs[j].Output.Amount()
		if ai == aj {
			return string(outs[i].ID[:]) < string(outs[j].ID[:])
		}
		if ascending {
			return ai < aj
		}
		return ai > aj
	})
}

// MakeTransferTransaction consumes outputs in the given order until amount and fee are covered.
// Remainder goes back to the sender
func MakeTransferTransaction(par *ED25519TransferInputs) (*ledger.Transaction, error) {
	if par.Amount < 0 || par.Fee < 0 {
		return nil, fmt.Errorf("amount and fee must be non-negative")
	}
	needed := par.Amount + par.Fee
	consumedOuts := make([]*ledger.OutputWithID, 0)
	var availableTokens int64

	for _, o := range par.Outputs {
		if len(consumedOuts) >= ledger.MaxInputs {
			return nil, fmt.Errorf("exceeded max number of consumed outputs %d", ledger.MaxInputs)
		}
		consumedOuts = append(consumedOuts, o)
		availableTokens += o.Output.Amount()
		if availableTokens >= needed {
			break
		}
	}
	if availableTokens < needed {
		return nil, fmt.Errorf("not enough tokens in address %s: needed %d, got %d",
			par.SenderAddress.String(), needed, availableTokens)
	}
	b := NewTransactionBuilder()
	for _, o := range consumedOuts {
		if _, err := b.ConsumeOutput(o.ID); err != nil {
			return nil, err
		}
	}
	if _, err := b.ProduceOutput(ledger.NewOutput(par.Amount, par.Target)); err != nil {
		return nil, err
	}
	if availableTokens > needed {
		if _, err := b.ProduceOutput(ledger.NewOutput(availableTokens-needed, par.SenderAddress)); err != nil {
			return nil, err
		}
	}
	return b.Sign(par.SenderPrivateKey)
}
