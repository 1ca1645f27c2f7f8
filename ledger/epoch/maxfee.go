package epoch

import (
	"sort"

	"github.com/lunfardo314/epochledger/ledger"
)

// MaxFeeTxHandler orders the batch by fee and then applies it the same way as TxHandler.
// Fees are calculated in the state before the epoch. Invalid transaction has fee 0
type MaxFeeTxHandler struct {
	*TxHandler
	sortOrder SortOrder
}

var _ Handler = &MaxFeeTxHandler{}

func NewMaxFeeTxHandler(snapshot ledger.UTXOStore, opts ...Option) *MaxFeeTxHandler {
	return &MaxFeeTxHandler{
		TxHandler: NewTxHandler(snapshot, opts...),
		sortOrder: makeOptions(opts...).sortOrder,
	}
}

func (h *MaxFeeTxHandler) SortOrder() SortOrder {
	return h.sortOrder
}

// Fee of the transaction in the current state
func (h *MaxFeeTxHandler) Fee(tx *ledger.Transaction) int64 {
	return h.validator.Fee(tx, h.utxoState)
}

func (h *MaxFeeTxHandler) HandleTxs(possibleTxs []*ledger.Transaction) []*ledger.Transaction {
	return h.TxHandler.HandleTxs(h.SortByFee(possibleTxs))
}

// SortByFee returns sorted copy of the transactions. Transactions with equal fees keep their relative order
func (h *MaxFeeTxHandler) SortByFee(txs []*ledger.Transaction) []*ledger.Transaction {
	type txWithFee struct {
		tx  *ledger.Transaction
		fee int64
	}
	withFees := make([]txWithFee, len(txs))
	for i, tx := range txs {
		withFees[i] = txWithFee{tx: tx, fee: h.Fee(tx)}
	}
	sort.SliceStable(withFees, func(i, j int) bool {
		if h.sortOrder == SortAscending {
			return withFees[i].fee < withFees[j].fee
		}
		return withFees[i].fee > withFees[j].fee
	})
	ret := make([]*ledger.Transaction, len(withFees))
	for i := range withFees {
		ret[i] = withFees[i].tx
	}
	h.log.Debugf("sorted %d transactions by fee, %s", len(ret), h.sortOrder.String())
	return ret
}
