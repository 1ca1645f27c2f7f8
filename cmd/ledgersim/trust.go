package main

import (
	"github.com/lunfardo314/epochledger/consensus/trust"
	"github.com/lunfardo314/epochledger/util/testutil"
	"github.com/pkg/errors"
)

type trustCommand struct {
	Nodes        int     `long:"nodes" description:"Number of nodes" default:"100"`
	Graph        float64 `long:"graph" description:"Probability of a node following another node" default:"0.1"`
	Malicious    float64 `long:"malicious" description:"Probability of a node being malicious" default:"0.3"`
	Distribution float64 `long:"distribution" description:"Probability of a node initially knowing a transaction" default:"0.05"`
	Rounds       int     `long:"rounds" description:"Number of rounds" default:"10"`
	Txs          int     `long:"txs" description:"Number of transactions" default:"500"`
	Flood        int     `long:"flood" description:"Fake transactions sent by a flooding node each round" default:"3"`
	Seed         int64   `long:"seed" description:"Random seed" default:"1"`
	Debug        bool    `long:"debug" description:"Debug logging"`
}

func (c *trustCommand) validate() error {
	if c.Nodes <= 0 || c.Rounds <= 0 || c.Txs < 0 {
		return errors.New("--nodes and --rounds must be positive, --txs not negative")
	}
	if err := checkShare(c.Graph, "graph"); err != nil {
		return err
	}
	if err := checkShare(c.Malicious, "malicious"); err != nil {
		return err
	}
	return checkShare(c.Distribution, "distribution")
}

func (c *trustCommand) Execute(_ []string) error {
	if err := c.validate(); err != nil {
		return errors.Wrap(err, "wrong trust simulation parameters")
	}
	log := testutil.NewSimpleLogger(c.Debug)
	defer func() { _ = log.Sync() }()

	sim := trust.NewSimulation(trust.Params{
		NumNodes:        c.Nodes,
		PGraph:          c.Graph,
		PMalicious:      c.Malicious,
		PTxDistribution: c.Distribution,
		NumRounds:       c.Rounds,
		NumTxs:          c.Txs,
		FloodPerRound:   c.Flood,
		Seed:            c.Seed,
	}, log)
	res := sim.Run()
	for i := 0; i < c.Nodes; i++ {
		if sim.IsMalicious(i) {
			continue
		}
		log.Debugf("node #%d: consensus on %d transactions", i, len(res.Consensus(i)))
	}
	log.Infof("compliant nodes: %d, in the largest agreeing group: %d", res.NumCompliant(), res.LargestAgreeingGroup())
	return nil
}
