package trust

import (
	"math/rand"

	"github.com/lunfardo314/epochledger"
	"github.com/lunfardo314/epochledger/ledger"
	"golang.org/x/crypto/blake2b"
)

// SilentNode never proposes anything
type SilentNode struct{}

var _ Node = SilentNode{}

func (SilentNode) SetFollowees(_ []bool) {}
func (SilentNode) SetPendingTransactions(_ []ledger.TransactionID) {}
func (SilentNode) SendToFollowers(_ Round) []ledger.TransactionID { return nil }
func (SilentNode) ReceiveFromFollowees(_ Round, _ []Candidate) {}

// FloodNode proposes new fake transactions in every round, so it is never suspected of being silent
type FloodNode struct {
	rnd      *rand.Rand
	perRound int
}

var _ Node = &FloodNode{}

func NewFloodNode(seed int64, perRound int) *FloodNode {
	if perRound <= 0 {
		perRound = 1
	}
	return &FloodNode{
		rnd:      rand.New(rand.NewSource(seed)),
		perRound: perRound,
	}
}

func (n *FloodNode) SetFollowees(_ []bool) {}
func (n *FloodNode) SetPendingTransactions(_ []ledger.TransactionID) {}
func (n *FloodNode) ReceiveFromFollowees(_ Round, _ []Candidate) {}

func (n *FloodNode) SendToFollowers(_ Round) []ledger.TransactionID {
	ret := make([]ledger.TransactionID, n.perRound)
	for i := range ret {
		ret[i] = randomTxID(n.rnd)
	}
	return ret
}

func randomTxID(rnd *rand.Rand) ledger.TransactionID {
	return blake2b.Sum256(epochledger.EncodeInteger(rnd.Uint64()))
}
