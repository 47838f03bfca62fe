package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wskdf/internal/estimate"
	"wskdf/internal/kdf"
	"wskdf/internal/oracle"
	"wskdf/internal/search"
)

var ErrNotFound = errors.New("search terminated without a result")

type findKeyOptions struct {
	command     string
	commandArgs []string
	preimageOut string
	keyOut      string
	nBits       int
	threads     int
	saltIn      string
	strategy    string
	oracleRate  float64
	avgTimeSecs float64
}

func newFindKeyCmd(a *app) *cobra.Command {
	var o findKeyOptions
	cmd := &cobra.Command{
		Use:   "find-key",
		Short: "Brute force finds the preimage/key pair using an external command",
		Long: `Brute force finds the preimage/key pair using an external command.

The command receives the hex encoded derived key on stdin. It should exit
with 0 if the key is correct, and non-zero otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.findKey(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.command, "command", "c", "", "Verifier command")
	f.StringArrayVar(&o.commandArgs, "command-arg", nil, "Argument passed to the verifier command (repeatable)")
	f.StringVar(&o.preimageOut, "preimage-output", "", stdoutHelp)
	f.StringVar(&o.keyOut, "key-output", "", stdoutHelp+". If not specified, no key is written, it can be derived from the preimage")
	f.IntVarP(&o.nBits, "n-bits", "n", 0, "Preimage bit length (1-63)")
	f.IntVarP(&o.threads, "threads", "t", 0, "Number of threads. If in doubt, run the benchmark first with a smaller number of threads")
	f.StringVar(&o.saltIn, "salt-input", "", stdinHelp)
	f.StringVar(&o.strategy, "strategy", "walk", "walk visits every candidate once from a random start; random samples independently per thread")
	f.Float64Var(&o.oracleRate, "oracle-rate", 0, "Maximum verifier processes started per second (0 for no limit)")
	f.Float64Var(&o.avgTimeSecs, "avg-time-secs", 0, "Average seconds per derivation, from the benchmark; prints time estimates before searching")
	addKDFFlags(cmd)
	for _, name := range []string{"command", "preimage-output", "n-bits", "threads", "salt-input"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) findKey(cmd *cobra.Command, o findKeyOptions) error {
	if o.threads < 1 {
		return errors.Wrapf(search.ErrInvalidThreads, "got %d", o.threads)
	}
	space, err := search.NewSpace(o.nBits)
	if err != nil {
		return err
	}
	strategy, err := search.ParseStrategy(o.strategy)
	if err != nil {
		return err
	}
	params, err := a.kdfParams(cmd)
	if err != nil {
		return err
	}
	if err := ensureNotExists(o.preimageOut, "preimage"); err != nil {
		return err
	}
	if err := ensureNotExists(o.keyOut, "key"); err != nil {
		return err
	}
	salt, err := readSalt(cmd, o.saltIn)
	if err != nil {
		return err
	}

	if o.avgTimeSecs > 0 {
		printSearchEstimate(cmd, space, o.threads, o.avgTimeSecs, strategy)
	}

	verifier := oracle.New(o.command,
		oracle.WithArgs(o.commandArgs...),
		oracle.WithLogger(a.log),
		oracle.WithRateLimit(o.oracleRate, o.threads),
		oracle.WithOutput(cmd.ErrOrStderr()),
	)
	res, err := search.Run(cmd.Context(), search.Request{
		Space:    space,
		Salt:     salt,
		Params:   params,
		Threads:  o.threads,
		Strategy: strategy,
		Deriver:  kdf.Argon2id{},
		Verifier: verifier,
		Logger:   a.log,
	})
	elapsed := estimate.Pretty(res.Elapsed.Seconds())
	if err != nil {
		a.log.Error("search aborted", zap.Error(err), zap.Uint64("attempts", res.Attempts))
		return errors.Wrapf(err, "search aborted after %s", elapsed)
	}

	switch res.Outcome {
	case search.Found:
		a.log.Info("found key", zap.String("elapsed", elapsed), zap.Uint64("attempts", res.Attempts))
		if err := writeOutput(cmd, o.preimageOut, res.Match.Preimage.String()); err != nil {
			return err
		}
		if o.keyOut != "" {
			return writeOutput(cmd, o.keyOut, res.Match.Key.String())
		}
		return nil
	default:
		a.log.Warn("search exhausted the space", zap.String("elapsed", elapsed), zap.Uint64("attempts", res.Attempts))
		return errors.Wrapf(ErrNotFound, "after %s and %d attempts", elapsed, res.Attempts)
	}
}

func printSearchEstimate(cmd *cobra.Command, space search.Space, threads int, avgSecs float64, strategy search.Strategy) {
	w := cmd.ErrOrStderr()
	r := estimate.ForBits(space.Bits(), threads, avgSecs)
	fmt.Fprintf(w, "\nTime estimates for %d bits, %d threads, %s search:\n", space.Bits(), threads, strategy)
	switch strategy {
	case search.StrategyWalk:
		fmt.Fprintf(w, "  Expected time: %s\n", estimate.Pretty(r.SystematicExpectedSecs))
		fmt.Fprintf(w, "  Worst case:    %s\n", estimate.Pretty(r.SystematicWorstSecs))
	case search.StrategyRandom:
		size := space.SizeFloat()
		fmt.Fprintf(w, "  Expected time:  %s\n", estimate.Pretty(r.RandomExpectedSecs))
		fmt.Fprintf(w, "  50%% chance by: %s\n", estimate.Pretty(estimate.RandomPercentile(size, threads, avgSecs, 0.50)))
		fmt.Fprintf(w, "  90%% chance by: %s\n", estimate.Pretty(estimate.RandomPercentile(size, threads, avgSecs, 0.90)))
		fmt.Fprintf(w, "  99%% chance by: %s\n", estimate.Pretty(r.Random99thSecs))
	}
	fmt.Fprintln(w)
}
