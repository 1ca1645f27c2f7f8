package txgen

import (
	"testing"

	"github.com/lunfardo314/epochledger/ledger"
	"github.com/stretchr/testify/require"
)

func TestGenerator(t *testing.T) {
	t.Run("state", func(t *testing.T) {
		gen := New(5, 1)
		require.EqualValues(t, 5, len(gen.Addresses()))
		state := gen.SeedState(3, 10)
		require.EqualValues(t, 15, state.Len())
		for _, addr := range gen.Addresses() {
			require.EqualValues(t, 3, state.NumUTXOs(addr))
			_, ok := gen.PrivateKey(addr)
			require.True(t, ok)
		}
		require.EqualValues(t, 15, len(gen.ownedOutputs(state)))

		// each account has its own seed transaction
		seedTxs := make(map[ledger.TransactionID]int)
		state.ForEachUTXO(func(oid ledger.OutputID, _ *ledger.Output) bool {
			seedTxs[oid.TransactionID()]++
			return true
		})
		require.EqualValues(t, 5, len(seedTxs))
		for _, n := range seedTxs {
			require.EqualValues(t, 3, n)
		}
	})
	t.Run("deterministic", func(t *testing.T) {
		gen1 := New(5, 100)
		gen2 := New(5, 100)
		par := DefaultParams()
		par.NumTxs = 10
		b1 := gen1.Batch(gen1.SeedState(2, 50), par)
		b2 := gen2.Batch(gen2.SeedState(2, 50), par)
		require.EqualValues(t, len(b1), len(b2))
		for i := range b1 {
			require.EqualValues(t, b1[i].ID(), b2[i].ID())
		}
	})
	t.Run("batch", func(t *testing.T) {
		gen := New(10, 2)
		state := gen.SeedState(2, 100)
		par := Params{
			NumTxs:        40,
			ConflictShare: 0.5,
			MaxFee:        5,
		}
		batch := gen.Batch(state, par)
		require.True(t, len(batch) > 0 && len(batch) <= 40)

		v := ledger.NewValidator()
		consumed := make(map[ledger.OutputID]int)
		for _, tx := range batch {
			require.EqualValues(t, 1, tx.NumInputs())
			// each is valid on its own
			require.NoError(t, v.CheckTransaction(tx, state))
			fee := v.Fee(tx, state)
			require.True(t, fee >= 0 && fee <= par.MaxFee)
			consumed[tx.Input(0).OutputID()]++
		}
		require.True(t, len(consumed) < len(batch))
	})
	t.Run("exhausted", func(t *testing.T) {
		gen := New(2, 3)
		state := gen.SeedState(1, 100)
		par := DefaultParams()
		par.ConflictShare = 0
		batch := gen.Batch(state, par)
		require.EqualValues(t, 2, len(batch))
	})
	t.Run("invalid", func(t *testing.T) {
		gen := New(3, 4)
		state := gen.SeedState(5, 100)
		par := DefaultParams()
		par.NumTxs = 10
		par.ConflictShare = 0
		par.InvalidShare = 1
		v := ledger.NewValidator()
		for _, tx := range gen.Batch(state, par) {
			require.ErrorIs(t, v.CheckTransaction(tx, state), ledger.ErrInvalidSignature)
		}
	})
}
