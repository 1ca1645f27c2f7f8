package epoch

import (
	"github.com/lunfardo314/epochledger/ledger"
	"go.uber.org/zap"
)

// SortOrder is the order of the batch by fee before it is applied
type SortOrder byte

const (
	// SortDescending the highest fee first. Among conflicting transactions the highest fee wins
	SortDescending = SortOrder(iota)
	// SortAscending the lowest fee first
	SortAscending
)

func (o SortOrder) String() string {
	switch o {
	case SortDescending:
		return "descending"
	case SortAscending:
		return "ascending"
	}
	return "unknown"
}

type (
	options struct {
		log       *zap.SugaredLogger
		verifier  ledger.SignatureVerifier
		sortOrder SortOrder
	}

	Option func(opt *options)
)

func defaultOptions() *options {
	return &options{
		log:       zap.NewNop().Sugar(),
		verifier:  ledger.ED25519Verifier{},
		sortOrder: SortDescending,
	}
}

func makeOptions(opts ...Option) *options {
	ret := defaultOptions()
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(opt *options) {
		if log != nil {
			opt.log = log
		}
	}
}

func WithVerifier(verifier ledger.SignatureVerifier) Option {
	return func(opt *options) {
		if verifier != nil {
			opt.verifier = verifier
		}
	}
}

// WithSortOrder is used by MaxFeeTxHandler only
func WithSortOrder(order SortOrder) Option {
	return func(opt *options) {
		opt.sortOrder = order
	}
}
