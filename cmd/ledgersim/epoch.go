package main

import (
	"math"

	"github.com/lunfardo314/epochledger/ledger"
	"github.com/lunfardo314/epochledger/ledger/epoch"
	"github.com/lunfardo314/epochledger/ledger/txgen"
	"github.com/lunfardo314/epochledger/util/testutil"
	"github.com/pkg/errors"
)

type epochCommand struct {
	Accounts  int     `long:"accounts" description:"Number of accounts" default:"100"`
	Outputs   int     `long:"outputs" description:"Initial number of outputs per account" default:"3"`
	Amount    int64   `long:"amount" description:"Initial amount of each output" default:"1000"`
	Epochs    int     `long:"epochs" description:"Number of epochs" default:"10"`
	Txs       int     `long:"txs" description:"Number of transactions in each epoch" default:"200"`
	Conflicts float64 `long:"conflicts" description:"Share of transactions spending an output already spent in the same batch" default:"0.2"`
	Invalid   float64 `long:"invalid" description:"Share of transactions with a wrong signature" default:"0.05"`
	MaxFee    int64   `long:"maxfee" description:"Maximum random fee" default:"10"`
	Plain     bool    `long:"plain" description:"Apply batches in submission order, without sorting by fee"`
	Ascending bool    `long:"ascending" description:"Sort by fee in ascending order"`
	Seed      int64   `long:"seed" description:"Random seed" default:"1"`
	Debug     bool    `long:"debug" description:"Debug logging"`
}

type stateHandler interface {
	epoch.Handler
	UTXOState() ledger.StateReader
}

func (c *epochCommand) validate() error {
	if c.Accounts <= 0 || c.Accounts >= math.MaxUint16 {
		return errors.Errorf("--accounts must be in [1,%d]", math.MaxUint16-1)
	}
	if c.Outputs <= 0 || c.Outputs > ledger.MaxOutputs {
		return errors.Errorf("--outputs must be in [1,%d]", ledger.MaxOutputs)
	}
	if c.Amount <= 0 || c.Epochs <= 0 || c.Txs < 0 || c.MaxFee < 0 {
		return errors.New("--amount and --epochs must be positive, --txs and --maxfee not negative")
	}
	if c.Plain && c.Ascending {
		return errors.New("--ascending can't be used with --plain")
	}
	if err := checkShare(c.Conflicts, "conflicts"); err != nil {
		return err
	}
	return checkShare(c.Invalid, "invalid")
}

func (c *epochCommand) Execute(_ []string) error {
	if err := c.validate(); err != nil {
		return errors.Wrap(err, "wrong epoch parameters")
	}
	log := testutil.NewSimpleLogger(c.Debug)
	defer func() { _ = log.Sync() }()

	gen := txgen.New(c.Accounts, c.Seed)
	genesis := gen.SeedState(c.Outputs, c.Amount)
	log.Infof("initial state: %d outputs, total amount %d", genesis.Len(), genesis.TotalAmount())

	var handler stateHandler
	if c.Plain {
		handler = epoch.NewTxHandler(genesis, epoch.WithLogger(log))
	} else {
		order := epoch.SortDescending
		if c.Ascending {
			order = epoch.SortAscending
		}
		handler = epoch.NewMaxFeeTxHandler(genesis, epoch.WithLogger(log), epoch.WithSortOrder(order))
	}

	results := make(chan *epoch.EpochResult, 1)
	pipe := epoch.NewPipeline(handler, log, func(res *epoch.EpochResult) {
		results <- res
	})
	pipe.Start()

	par := txgen.Params{
		NumTxs:        c.Txs,
		ConflictShare: c.Conflicts,
		InvalidShare:  c.Invalid,
		MaxFee:        c.MaxFee,
	}
	validator := ledger.NewValidator()
	var totalFee int64
	for e := 0; e < c.Epochs; e++ {
		// the pipeline is idle here, the state can be read
		current, ok := handler.UTXOState().(txgen.State)
		if !ok {
			return errors.New("ledger state can't be iterated")
		}
		batch := gen.Batch(current, par)
		fees := make(map[ledger.TransactionID]int64, len(batch))
		for _, tx := range batch {
			fees[tx.ID()] = validator.Fee(tx, handler.UTXOState())
		}
		if err := pipe.Submit(batch); err != nil {
			return errors.Wrapf(err, "epoch %d", e)
		}
		res := <-results
		var fee int64
		for _, tx := range res.Accepted {
			fee += fees[tx.ID()]
		}
		totalFee += fee
		log.Infof("epoch #%d: submitted %d, accepted %d, rejected %d, fee %d",
			res.Epoch, res.Submitted, len(res.Accepted), res.NumRejected(), fee)
	}
	pipe.Stop()
	pipe.Wait()
	log.Infof("epochs: %d, accepted: %d, rejected: %d, fees collected: %d",
		pipe.NumEpochs(), pipe.NumAccepted(), pipe.NumRejected(), totalFee)
	return nil
}
