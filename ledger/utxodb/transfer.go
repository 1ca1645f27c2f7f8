package utxodb

import (
	"crypto/ed25519"

	"github.com/lunfardo314/epochledger/ledger"
	"github.com/lunfardo314/epochledger/ledger/txbuilder"
)

// MakeED25519TransferInputs collects outputs of the sender, the biggest first
func (u *UTXODB) MakeED25519TransferInputs(privKey ed25519.PrivateKey, asc ...bool) (*txbuilder.ED25519TransferInputs, error) {
	ret := txbuilder.NewED25519TransferInputs(privKey)
	outs, err := u.GetUTXOsForAddress(ret.SenderAddress)
	if err != nil {
		return nil, err
	}
	txbuilder.SortOutputs(outs, asc...)
	ret.WithOutputs(outs)
	return ret, nil
}

// MakeTransfer builds signed transfer from the outputs currently owned by the sender.
// The store is not changed: the transaction becomes effective only when accepted by the epoch handler
func (u *UTXODB) MakeTransfer(privKey ed25519.PrivateKey, target ledger.Address, amount int64, fee ...int64) (*ledger.Transaction, error) {
	par, err := u.MakeED25519TransferInputs(privKey)
	if err != nil {
		return nil, err
	}
	par.WithTarget(target).WithAmount(amount)
	if len(fee) > 0 {
		par.WithFee(fee[0])
	}
	return txbuilder.MakeTransferTransaction(par)
}
