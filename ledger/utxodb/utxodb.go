package utxodb

import (
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/epochledger/ledger"
	"github.com/lunfardo314/unitrie/common"
)

type KVStore interface {
	common.KVReader
	common.BatchedUpdatable
	common.Traversable
}

// UTXODB is a ledger.UTXOStore on top of the key/value store.
// Outputs are stored in the UTXO partition by output ID. The account partition
// indexes output IDs by the owner's address
type UTXODB struct {
	store KVStore
}

const (
	PartitionUTXO = byte(iota)
	PartitionAccounts
)

var _ ledger.UTXOStore = &UTXODB{}

func New(store KVStore) *UTXODB {
	return &UTXODB{store: store}
}

// NewInMemory mostly for testing
func NewInMemory() *UTXODB {
	return New(common.NewInMemoryKVStore())
}

// NewWithGenesis creates in-memory UTXO set with the whole supply in one output with all-0 output ID
func NewWithGenesis(genesisAddr ledger.Address, initialSupply int64) *UTXODB {
	easyfl.Assert(initialSupply > 0, "initialSupply > 0")
	ret := NewInMemory()
	ret.AddUTXO(ledger.GenesisOutputID, ledger.NewOutput(initialSupply, genesisAddr))
	return ret
}

func utxoKey(oid *ledger.OutputID) []byte {
	return common.Concat(PartitionUTXO, oid[:])
}

func accountKey(addr ledger.Address, oid *ledger.OutputID) []byte {
	return common.Concat(PartitionAccounts, addr[:], oid[:])
}

func (u *UTXODB) HasUTXO(oid *ledger.OutputID) bool {
	return len(u.store.Get(utxoKey(oid))) > 0
}

func (u *UTXODB) GetUTXO(oid *ledger.OutputID) (*ledger.Output, bool) {
	data := u.store.Get(utxoKey(oid))
	if len(data) == 0 {
		return nil, false
	}
	ret, err := ledger.OutputFromBytes(data)
	easyfl.AssertNoError(err)
	return ret, true
}

// AddUTXO overwrites output with the same ID, if any
func (u *UTXODB) AddUTXO(oid ledger.OutputID, out *ledger.Output) {
	batch := u.store.BatchedWriter()
	if prev, found := u.GetUTXO(&oid); found {
		batch.Set(accountKey(prev.Address(), &oid), nil)
	}
	batch.Set(utxoKey(&oid), out.Bytes())
	batch.Set(accountKey(out.Address(), &oid), []byte{0xff})
	easyfl.AssertNoError(batch.Commit())
}

// RemoveUTXO is no-op if output is not in the store
func (u *UTXODB) RemoveUTXO(oid *ledger.OutputID) {
	out, found := u.GetUTXO(oid)
	if !found {
		return
	}
	batch := u.store.BatchedWriter()
	batch.Set(utxoKey(oid), nil)
	batch.Set(accountKey(out.Address(), oid), nil)
	easyfl.AssertNoError(batch.Commit())
}

func (u *UTXODB) Clone() ledger.UTXOStore {
	return u.Copy()
}

// Copy makes deep copy into a new in-memory store
func (u *UTXODB) Copy() *UTXODB {
	type kv struct{ k, v []byte }
	all := make([]kv, 0)
	u.store.Iterator(nil).Iterate(func(k, v []byte) bool {
		all = append(all, kv{k: append([]byte{}, k...), v: append([]byte{}, v...)})
		return true
	})
	store := common.NewInMemoryKVStore()
	batch := store.BatchedWriter()
	for _, p := range all {
		batch.Set(p.k, p.v)
	}
	easyfl.AssertNoError(batch.Commit())
	return New(store)
}

// ForEachUTXO iterates all outputs. Order is non-deterministic
func (u *UTXODB) ForEachUTXO(fun func(oid ledger.OutputID, out *ledger.Output) bool) {
	var err error
	u.store.Iterator([]byte{PartitionUTXO}).Iterate(func(k, v []byte) bool {
		var oid ledger.OutputID
		var out *ledger.Output
		if oid, err = ledger.OutputIDFromBytes(k[1:]); err != nil {
			return false
		}
		if out, err = ledger.OutputFromBytes(v); err != nil {
			return false
		}
		return fun(oid, out)
	})
	easyfl.AssertNoError(err)
}

func (u *UTXODB) Len() int {
	ret := 0
	u.store.Iterator([]byte{PartitionUTXO}).IterateKeys(func(_ []byte) bool {
		ret++
		return true
	})
	return ret
}

// TotalAmount is sum of all outputs in the store. Panics on overflow
func (u *UTXODB) TotalAmount() int64 {
	var ret int64
	var ok bool
	u.ForEachUTXO(func(_ ledger.OutputID, out *ledger.Output) bool {
		ret, ok = ledger.AddAmounts(ret, out.Amount())
		easyfl.Assert(ok, "TotalAmount: overflow")
		return true
	})
	return ret
}

// GetUTXOsForAddress order non-deterministic
func (u *UTXODB) GetUTXOsForAddress(addr ledger.Address) ([]*ledger.OutputWithID, error) {
	ret := make([]*ledger.OutputWithID, 0)
	prefix := common.Concat(PartitionAccounts, addr[:])
	var err error
	u.store.Iterator(prefix).IterateKeys(func(k []byte) bool {
		var oid ledger.OutputID
		if oid, err = ledger.OutputIDFromBytes(k[len(prefix):]); err != nil {
			return false
		}
		out, found := u.GetUTXO(&oid)
		if !found {
			err = fmt.Errorf("can't find output %s in address %s", oid.String(), addr.String())
			return false
		}
		ret = append(ret, &ledger.OutputWithID{
			ID:     oid,
			Output: out,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (u *UTXODB) account(addr ledger.Address) (int64, int) {
	outs, err := u.GetUTXOsForAddress(addr)
	easyfl.AssertNoError(err)
	var balance int64
	var ok bool
	for _, o := range outs {
		balance, ok = ledger.AddAmounts(balance, o.Output.Amount())
		easyfl.Assert(ok, "balance of %s: overflow", addr.String())
	}
	return balance, len(outs)
}

func (u *UTXODB) Balance(addr ledger.Address) int64 {
	ret, _ := u.account(addr)
	return ret
}

func (u *UTXODB) NumUTXOs(addr ledger.Address) int {
	_, ret := u.account(addr)
	return ret
}
