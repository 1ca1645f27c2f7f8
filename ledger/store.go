package ledger

// StateReader is read-only access to the set of unspent outputs
type StateReader interface {
	HasUTXO(oid *OutputID) bool
	GetUTXO(oid *OutputID) (*Output, bool)
}

// UTXOStore is the mutable set of unspent outputs.
// It is owned by one epoch processor at a time, implementations are not required to be thread-safe
type UTXOStore interface {
	StateReader
	AddUTXO(oid OutputID, out *Output)
	RemoveUTXO(oid *OutputID)
	// Clone makes a deep copy which does not share mutable state with the original
	Clone() UTXOStore
}
