package trust

import (
	"testing"

	"github.com/lunfardo314/epochledger/ledger"
	"github.com/lunfardo314/epochledger/util/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func txid(s string) ledger.TransactionID {
	return blake2b.Sum256([]byte(s))
}

func TestCompliantNode(t *testing.T) {
	a, b, c := txid("a"), txid("b"), txid("c")
	r0 := Round{Number: 0, Total: 2}
	r1 := Round{Number: 1, Total: 2}
	final := Round{Number: 2, Total: 2}

	t.Run("relay", func(t *testing.T) {
		n := NewCompliantNode()
		n.SetFollowees([]bool{false, true, true})
		n.SetPendingTransactions([]ledger.TransactionID{a})
		require.EqualValues(t, []ledger.TransactionID{a}, n.SendToFollowers(r0))

		n.ReceiveFromFollowees(r0, []Candidate{{Tx: a, Sender: 1}, {Tx: b, Sender: 1}, {Tx: c, Sender: 2}})
		require.EqualValues(t, 0, n.NumSuspected())
		// only newly learned are relayed
		sent := newTxSet(n.SendToFollowers(r1)...)
		require.EqualValues(t, 2, len(sent))
		require.True(t, sent.has(b) && sent.has(c))
		require.EqualValues(t, 3, len(n.SendToFollowers(final)))
	})
	t.Run("silent followee suspected", func(t *testing.T) {
		n := NewCompliantNode()
		n.SetFollowees([]bool{false, true, true})
		n.SetPendingTransactions(nil)
		n.ReceiveFromFollowees(r0, []Candidate{{Tx: a, Sender: 1}})
		require.True(t, n.IsSuspected(2))
		require.False(t, n.IsSuspected(1))
		require.False(t, n.IsSuspected(0))

		n.ReceiveFromFollowees(r1, []Candidate{{Tx: b, Sender: 1}, {Tx: c, Sender: 2}})
		require.EqualValues(t, newTxSet(a, b).sorted(), n.Consensus())
		// c came from the suspected followee
		require.EqualValues(t, []ledger.TransactionID{b}, n.SendToFollowers(Round{Number: 2, Total: 3}))
	})
	t.Run("not followed", func(t *testing.T) {
		n := NewCompliantNode()
		n.SetFollowees([]bool{false, true})
		n.SetPendingTransactions(nil)
		n.ReceiveFromFollowees(r0, []Candidate{{Tx: a, Sender: 1}, {Tx: b, Sender: 0}, {Tx: c, Sender: 5}})
		require.EqualValues(t, []ledger.TransactionID{a}, n.Consensus())
	})
	t.Run("followees copied", func(t *testing.T) {
		n := NewCompliantNode()
		f := []bool{true}
		n.SetFollowees(f)
		f[0] = false
		n.SetPendingTransactions(nil)
		n.ReceiveFromFollowees(r0, nil)
		require.True(t, n.IsSuspected(0))
	})
}

func TestMaliciousNodes(t *testing.T) {
	r := Round{Number: 0, Total: 1}
	require.EqualValues(t, 0, len(SilentNode{}.SendToFollowers(r)))

	fl := NewFloodNode(1, 5)
	s1 := fl.SendToFollowers(r)
	s2 := fl.SendToFollowers(r)
	require.EqualValues(t, 5, len(s1))
	require.EqualValues(t, 10, len(newTxSet(append(s1, s2...)...)))
}

func TestSimulation(t *testing.T) {
	t.Run("all compliant", func(t *testing.T) {
		par := DefaultParams()
		par.NumNodes = 20
		par.PGraph = 1
		par.PMalicious = 0
		par.PTxDistribution = 0.2
		par.NumTxs = 50
		sim := NewSimulation(par, testutil.NewSimpleLogger(true))
		res := sim.Run()
		require.EqualValues(t, 20, res.NumCompliant())
		require.True(t, res.Agreement())
		require.EqualValues(t, 20, res.LargestAgreeingGroup())
	})
	t.Run("silent nodes ignored", func(t *testing.T) {
		par := DefaultParams()
		par.NumNodes = 30
		par.PGraph = 1
		par.PMalicious = 0.3
		par.NumTxs = 50
		par.FloodPerRound = 0
		sim := NewSimulation(par, testutil.NewSimpleLogger(false))
		res := sim.Run()
		require.True(t, res.NumCompliant() < 30)
		// with the full graph every compliant node hears all compliant nodes in the first round
		agreed := res.Consensus(firstCompliant(sim))
		for i := 0; i < par.NumNodes; i++ {
			if sim.IsMalicious(i) {
				require.Nil(t, res.Consensus(i))
				continue
			}
			node := sim.Node(i).(*CompliantNode)
			for j := 0; j < par.NumNodes; j++ {
				if _, silent := sim.Node(j).(SilentNode); silent && i != j {
					require.True(t, node.IsSuspected(j))
				}
			}
		}
		require.True(t, len(agreed) > 0)
		require.True(t, res.Agreement())
	})
	t.Run("deterministic", func(t *testing.T) {
		par := DefaultParams()
		par.NumNodes = 30
		res1 := NewSimulation(par, nil).Run()
		res2 := NewSimulation(par, nil).Run()
		require.EqualValues(t, res1.NumCompliant(), res2.NumCompliant())
		for i := 0; i < par.NumNodes; i++ {
			require.EqualValues(t, res1.Consensus(i), res2.Consensus(i))
		}
	})
	t.Run("wrong params", func(t *testing.T) {
		par := DefaultParams()
		par.PGraph = 2
		require.Panics(t, func() {
			NewSimulation(par, nil)
		})
	})
}

func firstCompliant(sim *Simulation) int {
	for i := range sim.nodes {
		if !sim.IsMalicious(i) {
			return i
		}
	}
	return -1
}
