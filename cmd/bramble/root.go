package main

import (
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/bramble/config"
	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
)

// app is the state shared by every subcommand
type app struct {
	cfg    *config.Config
	logger ectologger.Logger
	sync   func() error

	rulesPath string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "bramble",
		Short:         "Extract people, organizations and locations from free text into a property graph",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.sync != nil {
				_ = a.sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.rulesPath, "rules", "", "Path to the relation rules YAML (overrides RULES_PATH)")

	cmd.AddCommand(
		newIngestCmd(a),
		newSchemaCmd(a),
		newSampleCmd(a),
		newServeCmd(a),
	)
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.rulesPath != "" {
		cfg.RulesPath = a.rulesPath
	}
	a.cfg = cfg

	logger, sync, err := newLogger(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return err
	}
	a.logger = logger
	a.sync = sync
	return nil
}

func newLogger(level string, pretty bool) (ectologger.Logger, func() error, error) {
	zapLevel, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, nil, bramerrors.NewConfigErrorf("environment", "invalid log level %q", level).AddField("LOG_LEVEL")
	}

	zapCfg := zap.NewProductionConfig()
	if pretty {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), zapLogger.Sync, nil
}
