package epoch

import (
	"sync"

	"github.com/lunfardo314/epochledger/ledger"
	"github.com/lunfardo314/epochledger/util/fifoqueue"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type (
	// Pipeline accepts batches from any goroutine and runs them through the handler one epoch at a time,
	// in the order of submission
	Pipeline struct {
		log       *zap.SugaredLogger
		handler   Handler
		queue     *fifoqueue.FIFOQueue[[]*ledger.Transaction]
		onResult  func(res *EpochResult)
		startOnce sync.Once
		done      chan struct{}
		stopped   atomic.Bool
		epochs    atomic.Uint64
		accepted  atomic.Uint64
		rejected  atomic.Uint64
	}

	EpochResult struct {
		Epoch     uint64
		Submitted int
		Accepted  []*ledger.Transaction
	}
)

func (r *EpochResult) NumRejected() int {
	return r.Submitted - len(r.Accepted)
}

func NewPipeline(handler Handler, globalLog *zap.SugaredLogger, onResult ...func(res *EpochResult)) *Pipeline {
	if globalLog == nil {
		globalLog = zap.NewNop().Sugar()
	}
	ret := &Pipeline{
		log:     globalLog.Named("epochs"),
		handler: handler,
		queue:   fifoqueue.New[[]*ledger.Transaction](),
		done:    make(chan struct{}),
	}
	if len(onResult) > 0 {
		ret.onResult = onResult[0]
	}
	return ret
}

func (pipe *Pipeline) Start() {
	pipe.startOnce.Do(func() {
		go pipe.run()
	})
}

func (pipe *Pipeline) run() {
	pipe.log.Infof("STARTED")
	pipe.queue.Consume(func(batch []*ledger.Transaction) {
		res := &EpochResult{
			Epoch:     pipe.epochs.Load(),
			Submitted: len(batch),
			Accepted:  pipe.handler.HandleTxs(batch),
		}
		pipe.epochs.Inc()
		pipe.accepted.Add(uint64(len(res.Accepted)))
		pipe.rejected.Add(uint64(res.NumRejected()))
		pipe.log.Debugf("epoch #%d: submitted %d, accepted %d", res.Epoch, res.Submitted, len(res.Accepted))
		if pipe.onResult != nil {
			pipe.onResult(res)
		}
	})
	pipe.log.Infof("STOPPED. Epochs: %d, accepted: %d, rejected: %d",
		pipe.epochs.Load(), pipe.accepted.Load(), pipe.rejected.Load())
	close(pipe.done)
}

// Submit enqueues copy of the batch as the next epoch
func (pipe *Pipeline) Submit(possibleTxs []*ledger.Transaction) error {
	batch := make([]*ledger.Transaction, len(possibleTxs))
	copy(batch, possibleTxs)
	return pipe.queue.Write(batch)
}

// Stop lets already submitted epochs to be processed. If the pipeline was never started,
// it will not start anymore and submitted epochs are dropped
func (pipe *Pipeline) Stop() {
	if !pipe.stopped.CompareAndSwap(false, true) {
		return
	}
	pipe.queue.Close()
	pipe.startOnce.Do(func() {
		pipe.log.Infof("stopped before start")
		close(pipe.done)
	})
}

// Wait blocks until pipeline is stopped and all submitted epochs are processed.
// Returns immediately after Stop if the pipeline was never started
func (pipe *Pipeline) Wait() {
	<-pipe.done
}

func (pipe *Pipeline) IsStopped() bool {
	return pipe.stopped.Load()
}

func (pipe *Pipeline) NumEpochs() uint64 {
	return pipe.epochs.Load()
}

func (pipe *Pipeline) NumAccepted() uint64 {
	return pipe.accepted.Load()
}

func (pipe *Pipeline) NumRejected() uint64 {
	return pipe.rejected.Load()
}
