package epoch

import (
	"github.com/lunfardo314/epochledger/ledger"
	"go.uber.org/zap"
)

// Handler processes one epoch: returns accepted transactions and updates its ledger state
type Handler interface {
	HandleTxs(possibleTxs []*ledger.Transaction) []*ledger.Transaction
}

// TxHandler owns the UTXO state of the ledger. Epochs must be processed one at a time
type TxHandler struct {
	utxoState ledger.UTXOStore
	validator *ledger.Validator
	log       *zap.SugaredLogger
}

var _ Handler = &TxHandler{}

// NewTxHandler makes a deep copy of the snapshot, so the caller's state is never changed
func NewTxHandler(snapshot ledger.UTXOStore, opts ...Option) *TxHandler {
	opt := makeOptions(opts...)
	return &TxHandler{
		utxoState: snapshot.Clone(),
		validator: ledger.NewValidator(opt.verifier),
		log:       opt.log,
	}
}

// UTXOState is the current state, i.e. after all epochs processed so far
func (h *TxHandler) UTXOState() ledger.StateReader {
	return h.utxoState
}

func (h *TxHandler) IsValidTx(tx *ledger.Transaction) bool {
	return h.validator.IsValidTx(tx, h.utxoState)
}

// CheckTransaction returns the reason why transaction is invalid in the current state
func (h *TxHandler) CheckTransaction(tx *ledger.Transaction) error {
	return h.validator.CheckTransaction(tx, h.utxoState)
}

// HandleTxs makes one pass over the transactions in the given order. Each transaction is checked
// against the state updated by all transactions accepted before it in the same pass, so of two
// transactions consuming the same output only the first one can be accepted.
// It is greedy: no attempt is made to find the biggest mutually valid subset.
// Returns accepted transactions in the order of acceptance
func (h *TxHandler) HandleTxs(possibleTxs []*ledger.Transaction) []*ledger.Transaction {
	accepted := make([]*ledger.Transaction, 0, len(possibleTxs))
	for _, tx := range possibleTxs {
		if err := applyTransaction(h.utxoState, h.validator, tx); err != nil {
			txid := tx.ID()
			h.log.Debugf("rejected %s: %v", txid.Short(), err)
			continue
		}
		accepted = append(accepted, tx)
	}
	h.log.Debugf("epoch processed: accepted %d, rejected %d", len(accepted), len(possibleTxs)-len(accepted))
	return accepted
}

// applyTransaction is one step of the epoch. If the transaction is valid, consumed outputs are
// removed from the state and produced outputs are added. Otherwise, the state is not touched
func applyTransaction(state ledger.UTXOStore, validator *ledger.Validator, tx *ledger.Transaction) error {
	if err := validator.CheckTransaction(tx, state); err != nil {
		return err
	}
	tx.ForEachInput(func(_ byte, inp *ledger.Input) bool {
		oid := inp.OutputID()
		state.RemoveUTXO(&oid)
		return true
	})
	tx.ForEachOutput(func(idx byte, o *ledger.Output) bool {
		state.AddUTXO(tx.ProducedOutputID(idx), o)
		return true
	})
	return nil
}
