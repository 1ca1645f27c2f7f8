package ledger

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownOutput    = errors.New("consumed output is not in the ledger state")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrDoubleSpendInTx  = errors.New("output is consumed more than once by the transaction")
	ErrNegativeOutput   = errors.New("negative output amount")
	ErrValueCreated     = errors.New("sum of outputs exceeds sum of inputs")
	ErrOverflow         = errors.New("int64 arithmetic overflow")
)

// Validator checks transactions against the ledger state. It never mutates the state
type Validator struct {
	verifier SignatureVerifier
}

func NewValidator(verifier ...SignatureVerifier) *Validator {
	ret := &Validator{verifier: ED25519Verifier{}}
	if len(verifier) > 0 && verifier[0] != nil {
		ret.verifier = verifier[0]
	}
	return ret
}

// CheckTransaction returns nil if transaction is valid in the state, otherwise the reason why it is not:
// - each consumed output is in the state
// - each input is signed by the owner of the consumed output
// - no output is consumed twice
// - amounts of produced outputs are non-negative
// - sum of consumed amounts is not less than sum of produced amounts. The difference is the fee
func (v *Validator) CheckTransaction(tx *Transaction, state StateReader) error {
	_, err := v.balance(tx, state)
	return err
}

func (v *Validator) IsValidTx(tx *Transaction, state StateReader) bool {
	return v.CheckTransaction(tx, state) == nil
}

// Fee is the difference between consumed and produced amounts. Invalid transaction has fee 0
func (v *Validator) Fee(tx *Transaction, state StateReader) int64 {
	ret, err := v.balance(tx, state)
	if err != nil {
		return 0
	}
	return ret
}

func (v *Validator) balance(tx *Transaction, state StateReader) (int64, error) {
	var inSum int64
	var err error
	claimed := make(map[OutputID]struct{}, tx.NumInputs())

	tx.ForEachInput(func(idx byte, inp *Input) bool {
		oid := inp.OutputID()
		consumed, found := state.GetUTXO(&oid)
		if !found {
			err = fmt.Errorf("%w: input #%d, %s", ErrUnknownOutput, idx, oid.String())
			return false
		}
		if !v.verifier.Verify(consumed.Address(), tx.DataToSign(int(idx)), inp.Signature()) {
			err = fmt.Errorf("%w: input #%d, %s", ErrInvalidSignature, idx, oid.String())
			return false
		}
		if _, already := claimed[oid]; already {
			err = fmt.Errorf("%w: input #%d, %s", ErrDoubleSpendInTx, idx, oid.String())
			return false
		}
		claimed[oid] = struct{}{}
		var ok bool
		if inSum, ok = AddAmounts(inSum, consumed.Amount()); !ok {
			err = fmt.Errorf("%w: summing inputs", ErrOverflow)
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	tx.ForEachOutput(func(idx byte, o *Output) bool {
		if o.Amount() < 0 {
			err = fmt.Errorf("%w: output #%d, amount %d", ErrNegativeOutput, idx, o.Amount())
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	outSum, ok := tx.OutputSum()
	if !ok {
		return 0, fmt.Errorf("%w: summing outputs", ErrOverflow)
	}
	if inSum < outSum {
		return 0, fmt.Errorf("%w: inputs %d, outputs %d", ErrValueCreated, inSum, outSum)
	}
	return inSum - outSum, nil
}

// AddAmounts returns false on int64 overflow
func AddAmounts(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}
