package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"wskdf/internal/kdf"
	"wskdf/internal/logging"
)

// app carries what every subcommand needs once the root command has
// loaded configuration.
type app struct {
	v          *viper.Viper
	cfg        *Config
	log        *zap.Logger
	configFile string
	verbose    bool
}

// Execute runs the command line with SIGINT/SIGTERM cancelling ctx.
func Execute(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper(), log: zap.NewNop()}
	cmd := &cobra.Command{
		Use:               "wskdf",
		Short:             "Weak, Slow, Key Derivation Function",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { _ = a.log.Sync() },
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Path to config file (yaml, json or toml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Log every candidate (debug level)")
	pf.String("log-level", "info", "Log level (debug|info|warn|error)")
	pf.String("log-format", "console", "Log format (console|json)")
	pf.String("log-file", "", "Also write JSON logs to this file, rotated")
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = a.v.BindPFlag("log.file", pf.Lookup("log-file"))

	cmd.AddCommand(
		newGenerateSaltCmd(a),
		newOutputRandomKeyCmd(a),
		newDeriveKeyCmd(a),
		newCheckPreimageCmd(a),
		newFindKeyCmd(a),
		newBenchmarkCmd(a),
		newEstimationCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(a.v, a.configFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func addKDFFlags(cmd *cobra.Command) {
	cmd.Flags().Uint32("ops-limit", defaultOpsLimit, "Argon2id passes (overrides kdf.ops_limit)")
	cmd.Flags().Uint32("mem-limit-kbytes", defaultMemLimitKBytes, "Argon2id memory in KiB (overrides kdf.mem_limit_kbytes)")
}

// kdfParams resolves the cost parameters: an explicit flag wins over the
// config file and environment.
func (a *app) kdfParams(cmd *cobra.Command) (kdf.Params, error) {
	p := a.cfg.KDF
	if cmd.Flags().Changed("ops-limit") {
		p.OpsLimit, _ = cmd.Flags().GetUint32("ops-limit")
	}
	if cmd.Flags().Changed("mem-limit-kbytes") {
		p.MemLimitKiB, _ = cmd.Flags().GetUint32("mem-limit-kbytes")
	}
	return p, p.Validate()
}
