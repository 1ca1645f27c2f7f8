// Package txgen generates random batches of transactions with conflicts for simulations and tests
package txgen

import (
	"crypto/ed25519"
	"math"
	"math/rand"
	"sort"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/epochledger/ledger"
	"github.com/lunfardo314/epochledger/ledger/txbuilder"
	"github.com/lunfardo314/epochledger/ledger/utxodb"
	"github.com/lunfardo314/unitrie/common"
	"golang.org/x/crypto/blake2b"
)

type (
	Params struct {
		NumTxs int

		// ConflictShare is probability of the transaction consuming output already consumed by another one in the batch
		ConflictShare float64

		// InvalidShare is probability of the transaction being signed by the wrong key
		InvalidShare float64

		// MaxFee upper bound of the random fee
		MaxFee int64
	}

	// State is iterable UTXO set
	State interface {
		ForEachUTXO(fun func(oid ledger.OutputID, out *ledger.Output) bool)
	}

	Generator struct {
		rnd   *rand.Rand
		keys  map[ledger.Address]ed25519.PrivateKey
		addrs []ledger.Address

		// signs invalid transactions
		stranger ed25519.PrivateKey
	}
)

func DefaultParams() Params {
	return Params{
		NumTxs:        100,
		ConflictShare: 0.2,
		InvalidShare:  0.05,
		MaxFee:        10,
	}
}

// New creates generator over deterministic accounts
func New(numAccounts int, seed int64) *Generator {
	easyfl.Assert(numAccounts > 0 && numAccounts < math.MaxUint16, "wrong number of accounts %d", numAccounts)
	ret := &Generator{
		rnd:   rand.New(rand.NewSource(seed)),
		keys:  make(map[ledger.Address]ed25519.PrivateKey),
		addrs: make([]ledger.Address, numAccounts),
	}
	ret.stranger, _, _ = utxodb.GenerateKeys(math.MaxUint16)
	for i := range ret.addrs {
		priv, _, addr := utxodb.GenerateKeys(uint16(i))
		ret.keys[addr] = priv
		ret.addrs[i] = addr
	}
	return ret
}

func (g *Generator) Addresses() []ledger.Address {
	return append([]ledger.Address{}, g.addrs...)
}

func (g *Generator) PrivateKey(addr ledger.Address) (ed25519.PrivateKey, bool) {
	ret, ok := g.keys[addr]
	return ret, ok
}

// SeedState creates state with outputsPerAccount outputs of the given amount for each account
func (g *Generator) SeedState(outputsPerAccount int, amount int64) *utxodb.UTXODB {
	easyfl.Assert(outputsPerAccount > 0 && outputsPerAccount <= ledger.MaxOutputs, "wrong outputsPerAccount %d", outputsPerAccount)
	ret := utxodb.NewInMemory()
	for i, addr := range g.addrs {
		txid := ledger.TransactionID(blake2b.Sum256(common.Concat([]byte("seed"), addr[:])))
		for j := 0; j < outputsPerAccount; j++ {
			ret.AddUTXO(ledger.NewOutputID(txid, byte(j)), ledger.NewOutput(amount+int64(i%7), addr))
		}
	}
	return ret
}

// ownedOutputs returns outputs of known accounts in deterministic order
func (g *Generator) ownedOutputs(state State) []*ledger.OutputWithID {
	ret := make([]*ledger.OutputWithID, 0)
	state.ForEachUTXO(func(oid ledger.OutputID, out *ledger.Output) bool {
		if _, known := g.keys[out.Address()]; known {
			ret = append(ret, &ledger.OutputWithID{ID: oid, Output: out})
		}
		return true
	})
	sort.Slice(ret, func(i, j int) bool {
		return string(ret[i].ID[:]) < string(ret[j].ID[:])
	})
	return ret
}

// Batch generates transactions, each consuming one output of the state. Outputs are consumed in
// random order, some of them twice. Batch may be shorter than requested if outputs are exhausted
func (g *Generator) Batch(state State, par Params) []*ledger.Transaction {
	outs := g.ownedOutputs(state)
	g.rnd.Shuffle(len(outs), func(i, j int) {
		outs[i], outs[j] = outs[j], outs[i]
	})
	ret := make([]*ledger.Transaction, 0, par.NumTxs)
	used := make([]*ledger.OutputWithID, 0)
	next := 0
	for len(ret) < par.NumTxs {
		var o *ledger.OutputWithID
		switch {
		case len(used) > 0 && g.rnd.Float64() < par.ConflictShare:
			o = used[g.rnd.Intn(len(used))]
		case next < len(outs):
			o = outs[next]
			next++
			used = append(used, o)
		default:
			return ret
		}
		ret = append(ret, g.spend(o, par))
	}
	return ret
}

func (g *Generator) spend(o *ledger.OutputWithID, par Params) *ledger.Transaction {
	amount := o.Output.Amount()
	var fee int64
	if par.MaxFee > 0 {
		fee = g.rnd.Int63n(par.MaxFee + 1)
	}
	if fee > amount {
		fee = amount
	}
	target := g.addrs[g.rnd.Intn(len(g.addrs))]
	b := txbuilder.NewTransactionBuilder().WithInput(o.ID)
	rest := amount - fee
	if rest > 1 && g.rnd.Intn(2) == 0 {
		part := 1 + g.rnd.Int63n(rest-1)
		b.WithOutput(part, target).WithOutput(rest-part, o.Output.Address())
	} else {
		b.WithOutput(rest, target)
	}
	key := g.keys[o.Output.Address()]
	if g.rnd.Float64() < par.InvalidShare {
		key = g.stranger
	}
	return b.MustSign(key)
}
