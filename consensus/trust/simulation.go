package trust

import (
	"bytes"
	"math/rand"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/epochledger/ledger"
	"go.uber.org/zap"
)

type (
	Params struct {
		NumNodes int
		// PGraph probability of a node following another node
		PGraph float64
		// PMalicious probability of a node being malicious
		PMalicious float64
		// PTxDistribution probability of a compliant node initially knowing a transaction
		PTxDistribution float64
		NumRounds       int
		NumTxs          int
		// FloodPerRound number of fake transactions sent by a flooding node each round
		FloodPerRound int
		Seed          int64
	}

	// Simulation is the round driver. It owns the follow graph and passes Round to the nodes
	Simulation struct {
		par       Params
		log       *zap.SugaredLogger
		rnd       *rand.Rand
		nodes     []Node
		malicious []bool
		followees [][]bool
		txs       []ledger.TransactionID
	}

	// Result final consensus of each compliant node
	Result struct {
		consensus [][]ledger.TransactionID
		malicious []bool
	}
)

func DefaultParams() Params {
	return Params{
		NumNodes:        100,
		PGraph:          0.1,
		PMalicious:      0.3,
		PTxDistribution: 0.05,
		NumRounds:       10,
		NumTxs:          500,
		FloodPerRound:   3,
		Seed:            1,
	}
}

func checkProbability(p float64, name string) {
	easyfl.Assert(0 <= p && p <= 1, "%s must be in [0,1]: %f", name, p)
}

// NewSimulation builds the network: random follow graph, malicious nodes and initial distribution of transactions
func NewSimulation(par Params, log *zap.SugaredLogger) *Simulation {
	easyfl.Assert(par.NumNodes > 0, "NumNodes > 0")
	easyfl.Assert(par.NumRounds > 0, "NumRounds > 0")
	easyfl.Assert(par.NumTxs >= 0, "NumTxs >= 0")
	checkProbability(par.PGraph, "PGraph")
	checkProbability(par.PMalicious, "PMalicious")
	checkProbability(par.PTxDistribution, "PTxDistribution")
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ret := &Simulation{
		par:       par,
		log:       log.Named("trust"),
		rnd:       rand.New(rand.NewSource(par.Seed)),
		nodes:     make([]Node, par.NumNodes),
		malicious: make([]bool, par.NumNodes),
		followees: make([][]bool, par.NumNodes),
		txs:       make([]ledger.TransactionID, par.NumTxs),
	}
	for i := range ret.nodes {
		switch {
		case ret.rnd.Float64() >= par.PMalicious:
			ret.nodes[i] = NewCompliantNode()
		case ret.rnd.Intn(2) == 0:
			ret.nodes[i] = SilentNode{}
			ret.malicious[i] = true
		default:
			ret.nodes[i] = NewFloodNode(ret.rnd.Int63(), par.FloodPerRound)
			ret.malicious[i] = true
		}
	}
	for i := range ret.followees {
		ret.followees[i] = make([]bool, par.NumNodes)
		for j := range ret.followees[i] {
			ret.followees[i][j] = i != j && ret.rnd.Float64() < par.PGraph
		}
		ret.nodes[i].SetFollowees(ret.followees[i])
	}
	for i := range ret.txs {
		ret.txs[i] = randomTxID(ret.rnd)
	}
	for i, node := range ret.nodes {
		pending := make([]ledger.TransactionID, 0)
		for _, tx := range ret.txs {
			if ret.rnd.Float64() < par.PTxDistribution {
				pending = append(pending, tx)
			}
		}
		node.SetPendingTransactions(pending)
		ret.log.Debugf("node #%d: malicious: %v, initial transactions: %d", i, ret.malicious[i], len(pending))
	}
	return ret
}

func (s *Simulation) Node(i int) Node {
	return s.nodes[i]
}

func (s *Simulation) IsMalicious(i int) bool {
	return s.malicious[i]
}

// Run runs all rounds. In each round all nodes propose first, then all nodes receive proposals
// of their followees
func (s *Simulation) Run() *Result {
	for n := 0; n < s.par.NumRounds; n++ {
		r := Round{Number: n, Total: s.par.NumRounds}
		proposals := make([][]ledger.TransactionID, len(s.nodes))
		for i, node := range s.nodes {
			proposals[i] = node.SendToFollowers(r)
		}
		numCandidates := 0
		for i, node := range s.nodes {
			candidates := make([]Candidate, 0)
			for j, follows := range s.followees[i] {
				if !follows {
					continue
				}
				for _, tx := range proposals[j] {
					candidates = append(candidates, Candidate{Tx: tx, Sender: j})
				}
			}
			numCandidates += len(candidates)
			node.ReceiveFromFollowees(r, candidates)
		}
		s.log.Debugf("round %d/%d: candidates delivered: %d", n+1, s.par.NumRounds, numCandidates)
	}
	final := Round{Number: s.par.NumRounds, Total: s.par.NumRounds}
	ret := &Result{
		consensus: make([][]ledger.TransactionID, len(s.nodes)),
		malicious: append([]bool{}, s.malicious...),
	}
	for i, node := range s.nodes {
		if s.malicious[i] {
			continue
		}
		ret.consensus[i] = node.SendToFollowers(final)
		sortIDs(ret.consensus[i])
	}
	s.log.Infof("simulation finished. Compliant nodes: %d, agreement: %v, largest agreeing group: %d",
		ret.NumCompliant(), ret.Agreement(), ret.LargestAgreeingGroup())
	return ret
}

func (r *Result) NumCompliant() int {
	ret := 0
	for _, m := range r.malicious {
		if !m {
			ret++
		}
	}
	return ret
}

// Consensus of the node i. Nil for malicious node
func (r *Result) Consensus(i int) []ledger.TransactionID {
	return r.consensus[i]
}

func (r *Result) Agreement() bool {
	return r.LargestAgreeingGroup() == r.NumCompliant()
}

// LargestAgreeingGroup number of compliant nodes with the most common consensus set
func (r *Result) LargestAgreeingGroup() int {
	counts := make(map[string]int)
	ret := 0
	for i, c := range r.consensus {
		if r.malicious[i] {
			continue
		}
		key := string(bytes.Join(idsBytes(c), nil))
		counts[key]++
		if counts[key] > ret {
			ret = counts[key]
		}
	}
	return ret
}

func idsBytes(ids []ledger.TransactionID) [][]byte {
	ret := make([][]byte, len(ids))
	for i := range ids {
		ret[i] = ids[i][:]
	}
	return ret
}
