package epoch_test

import (
	"testing"

	"github.com/lunfardo314/epochledger/ledger"
	"github.com/lunfardo314/epochledger/ledger/epoch"
	"github.com/lunfardo314/epochledger/ledger/txbuilder"
	"github.com/lunfardo314/epochledger/ledger/txgen"
	"github.com/lunfardo314/epochledger/ledger/utxodb"
	"github.com/lunfardo314/epochledger/util/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func fakeTxID(s string) ledger.TransactionID {
	return blake2b.Sum256([]byte(s))
}

func stateSum(state *utxodb.UTXODB) int64 {
	return state.TotalAmount()
}

func TestTxHandler(t *testing.T) {
	privX, _, addrX := utxodb.GenerateKeys(0)
	privY, _, addrY := utxodb.GenerateKeys(1)
	oidA0 := ledger.NewOutputID(fakeTxID("A"), 0)

	newState := func() *utxodb.UTXODB {
		ret := utxodb.NewInMemory()
		ret.AddUTXO(oidA0, ledger.NewOutput(10, addrX))
		return ret
	}

	t.Run("consume and produce", func(t *testing.T) {
		h := epoch.NewTxHandler(newState(), epoch.WithLogger(testutil.NewSimpleLogger(true)))
		t1 := txbuilder.NewTransactionBuilder().WithInput(oidA0).WithOutput(10, addrY).MustSign(privX)
		require.True(t, h.IsValidTx(t1))

		accepted := h.HandleTxs([]*ledger.Transaction{t1})
		require.EqualValues(t, 1, len(accepted))
		require.True(t, accepted[0] == t1)

		require.False(t, h.UTXOState().HasUTXO(&oidA0))
		oidT1 := ledger.NewOutputID(t1.ID(), 0)
		out, ok := h.UTXOState().GetUTXO(&oidT1)
		require.True(t, ok)
		require.EqualValues(t, 10, out.Amount())
		require.EqualValues(t, addrY, out.Address())

		// spends the same output again
		t2 := txbuilder.NewTransactionBuilder().WithInput(oidA0).WithOutput(10, addrX).MustSign(privX)
		require.False(t, h.IsValidTx(t2))
		require.ErrorIs(t, h.CheckTransaction(t2), ledger.ErrUnknownOutput)
		accepted = h.HandleTxs([]*ledger.Transaction{t2})
		require.EqualValues(t, 0, len(accepted))
		_, ok = h.UTXOState().GetUTXO(&oidT1)
		require.True(t, ok)
	})
	t.Run("empty batch", func(t *testing.T) {
		h := epoch.NewTxHandler(newState())
		accepted := h.HandleTxs(nil)
		require.NotNil(t, accepted)
		require.EqualValues(t, 0, len(accepted))
		require.True(t, h.UTXOState().HasUTXO(&oidA0))

		accepted = h.HandleTxs([]*ledger.Transaction{})
		require.EqualValues(t, 0, len(accepted))
		require.True(t, h.UTXOState().HasUTXO(&oidA0))
	})
	t.Run("snapshot not changed", func(t *testing.T) {
		snapshot := newState()
		h := epoch.NewTxHandler(snapshot)
		t1 := txbuilder.NewTransactionBuilder().WithInput(oidA0).WithOutput(10, addrY).MustSign(privX)
		require.EqualValues(t, 1, len(h.HandleTxs([]*ledger.Transaction{t1})))
		require.True(t, snapshot.HasUTXO(&oidA0))
		require.EqualValues(t, 1, snapshot.Len())
		require.False(t, h.UTXOState().HasUTXO(&oidA0))
	})
	t.Run("double spend in batch", func(t *testing.T) {
		h := epoch.NewTxHandler(newState())
		t1 := txbuilder.NewTransactionBuilder().WithInput(oidA0).WithOutput(10, addrY).MustSign(privX)
		t2 := txbuilder.NewTransactionBuilder().WithInput(oidA0).WithOutput(9, addrX).MustSign(privX)
		accepted := h.HandleTxs([]*ledger.Transaction{t1, t2})
		require.EqualValues(t, []*ledger.Transaction{t1}, accepted)

		h = epoch.NewTxHandler(newState())
		accepted = h.HandleTxs([]*ledger.Transaction{t2, t1})
		require.EqualValues(t, []*ledger.Transaction{t2}, accepted)
	})
	t.Run("chain in batch", func(t *testing.T) {
		h := epoch.NewTxHandler(newState())
		t1 := txbuilder.NewTransactionBuilder().WithInput(oidA0).WithOutput(10, addrY).MustSign(privX)
		t2 := txbuilder.NewTransactionBuilder().
			WithInput(ledger.NewOutputID(t1.ID(), 0)).
			WithOutput(4, addrX).
			WithOutput(5, addrY).
			MustSign(privY)
		// t2 before t1 is rejected: its input does not exist yet
		accepted := h.HandleTxs([]*ledger.Transaction{t2, t1})
		require.EqualValues(t, []*ledger.Transaction{t1}, accepted)

		h = epoch.NewTxHandler(newState())
		accepted = h.HandleTxs([]*ledger.Transaction{t1, t2})
		require.EqualValues(t, []*ledger.Transaction{t1, t2}, accepted)
		oid := ledger.NewOutputID(t2.ID(), 1)
		out, ok := h.UTXOState().GetUTXO(&oid)
		require.True(t, ok)
		require.EqualValues(t, 5, out.Amount())
	})
	t.Run("invalid does not change state", func(t *testing.T) {
		h := epoch.NewTxHandler(newState())
		neg := txbuilder.NewTransactionBuilder().
			WithInput(oidA0).
			WithOutput(-1, addrY).
			WithOutput(11, addrY).
			MustSign(privX)
		more := txbuilder.NewTransactionBuilder().WithInput(oidA0).WithOutput(11, addrY).MustSign(privX)
		wrongKey := txbuilder.NewTransactionBuilder().WithInput(oidA0).WithOutput(10, addrY).MustSign(privY)
		for i := 0; i < 2; i++ {
			accepted := h.HandleTxs([]*ledger.Transaction{neg, more, wrongKey})
			require.EqualValues(t, 0, len(accepted))
			require.True(t, h.UTXOState().HasUTXO(&oidA0))
			for _, tx := range []*ledger.Transaction{neg, more, wrongKey} {
				oid := ledger.NewOutputID(tx.ID(), 0)
				require.False(t, h.UTXOState().HasUTXO(&oid))
			}
		}
	})
}

func TestTxHandlerRandom(t *testing.T) {
	const (
		numAccounts = 20
		numEpochs   = 5
	)
	gen := txgen.New(numAccounts, 1)
	snapshot := gen.SeedState(5, 100)
	state := snapshot.Copy()
	h := epoch.NewTxHandler(snapshot, epoch.WithLogger(testutil.NewSimpleLogger(false)))

	par := txgen.DefaultParams()
	par.NumTxs = 30
	par.ConflictShare = 0.3
	par.InvalidShare = 0.1

	totalBefore := stateSum(state)
	for e := 0; e < numEpochs; e++ {
		batch := gen.Batch(state, par)
		require.True(t, len(batch) > 0)

		accepted := h.HandleTxs(batch)
		require.True(t, len(accepted) <= len(batch))

		consumed := make(map[ledger.OutputID]struct{})
		var fees int64
		for _, tx := range accepted {
			// fee is known before the state is changed by the same tx
			require.True(t, ledger.NewValidator().IsValidTx(tx, state))
			fees += ledger.NewValidator().Fee(tx, state)
			tx.ForEachInput(func(_ byte, inp *ledger.Input) bool {
				oid := inp.OutputID()
				_, already := consumed[oid]
				require.False(t, already)
				consumed[oid] = struct{}{}
				state.RemoveUTXO(&oid)
				return true
			})
			tx.ForEachOutput(func(idx byte, o *ledger.Output) bool {
				state.AddUTXO(tx.ProducedOutputID(idx), o)
				return true
			})
		}
		// handler state is exactly the state replayed with accepted transactions
		require.EqualValues(t, state.Len(), countUTXOs(h))
		state.ForEachUTXO(func(oid ledger.OutputID, out *ledger.Output) bool {
			o, ok := h.UTXOState().GetUTXO(&oid)
			require.True(t, ok)
			require.EqualValues(t, out.Bytes(), o.Bytes())
			return true
		})
		require.EqualValues(t, totalBefore-fees, stateSum(state))
		totalBefore = stateSum(state)
	}
}

func countUTXOs(h *epoch.TxHandler) int {
	return h.UTXOState().(*utxodb.UTXODB).Len()
}
