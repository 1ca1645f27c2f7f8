// Package trust simulates reaching agreement on a set of transactions in a network of nodes
// which trust the nodes they follow. Some of the nodes may be malicious
package trust

import (
	"bytes"
	"sort"

	"github.com/lunfardo314/epochledger/ledger"
)

type (
	// Candidate is a transaction proposed by the followee with index Sender
	Candidate struct {
		Tx     ledger.TransactionID
		Sender int
	}

	// Round is passed by the simulation driver to each node on every call
	Round struct {
		Number int
		Total  int
	}

	Node interface {
		// SetFollowees followees[i] is true if the node follows node i
		SetFollowees(followees []bool)
		// SetPendingTransactions initial transactions the node knows about
		SetPendingTransactions(txs []ledger.TransactionID)
		// SendToFollowers proposals of the node in the round. In the final round it is the node's consensus
		SendToFollowers(r Round) []ledger.TransactionID
		// ReceiveFromFollowees proposals of all followees in the round
		ReceiveFromFollowees(r Round, candidates []Candidate)
	}

	txSet map[ledger.TransactionID]struct{}
)

func (r Round) IsFinal() bool {
	return r.Number >= r.Total
}

func newTxSet(txs ...ledger.TransactionID) txSet {
	ret := make(txSet, len(txs))
	for _, tx := range txs {
		ret[tx] = struct{}{}
	}
	return ret
}

func (s txSet) has(tx ledger.TransactionID) bool {
	_, ok := s[tx]
	return ok
}

// sorted for determinism of the simulation
func (s txSet) sorted() []ledger.TransactionID {
	ret := make([]ledger.TransactionID, 0, len(s))
	for tx := range s {
		ret = append(ret, tx)
	}
	sortIDs(ret)
	return ret
}

func sortIDs(ids []ledger.TransactionID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}

// CompliantNode follows the rules. It suspects a followee to be malicious as soon as the followee
// does not propose anything in a round. Proposals of suspected followees are ignored.
// All state is owned by the node
type CompliantNode struct {
	followees []bool
	suspected []bool
	consensus txSet
	// learned in the last round, to be relayed to followers
	pending txSet
}

var _ Node = &CompliantNode{}

func NewCompliantNode() *CompliantNode {
	return &CompliantNode{
		consensus: newTxSet(),
		pending:   newTxSet(),
	}
}

func (n *CompliantNode) SetFollowees(followees []bool) {
	n.followees = append([]bool{}, followees...)
	n.suspected = make([]bool, len(followees))
}

func (n *CompliantNode) SetPendingTransactions(txs []ledger.TransactionID) {
	n.pending = newTxSet(txs...)
	n.consensus = newTxSet(txs...)
}

func (n *CompliantNode) SendToFollowers(r Round) []ledger.TransactionID {
	if r.IsFinal() {
		return n.consensus.sorted()
	}
	return n.pending.sorted()
}

func (n *CompliantNode) ReceiveFromFollowees(_ Round, candidates []Candidate) {
	n.pending = newTxSet()
	senders := make(map[int]struct{})
	for _, c := range candidates {
		senders[c.Sender] = struct{}{}
	}
	for i, follows := range n.followees {
		if _, sent := senders[i]; follows && !sent {
			n.suspected[i] = true
		}
	}
	for _, c := range candidates {
		if !n.trusts(c.Sender) || n.consensus.has(c.Tx) {
			continue
		}
		n.consensus[c.Tx] = struct{}{}
		n.pending[c.Tx] = struct{}{}
	}
}

func (n *CompliantNode) trusts(i int) bool {
	if i < 0 || i >= len(n.followees) {
		return false
	}
	return n.followees[i] && !n.suspected[i]
}

func (n *CompliantNode) Consensus() []ledger.TransactionID {
	return n.consensus.sorted()
}

func (n *CompliantNode) IsSuspected(i int) bool {
	return i >= 0 && i < len(n.suspected) && n.suspected[i]
}

func (n *CompliantNode) NumSuspected() int {
	ret := 0
	for _, s := range n.suspected {
		if s {
			ret++
		}
	}
	return ret
}
