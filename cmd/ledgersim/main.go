package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

type options struct {
	Epoch epochCommand `command:"epoch" description:"Run epochs of random transaction batches through the ledger"`
	Trust trustCommand `command:"trust" description:"Run the trust consensus simulation"`
}

func main() {
	opts := &options{}
	parser := flags.NewParser(opts, flags.PrintErrors|flags.HelpFlag)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func checkShare(v float64, name string) error {
	if v < 0 || v > 1 {
		return errors.Errorf("--%s must be in [0,1], got %f", name, v)
	}
	return nil
}
