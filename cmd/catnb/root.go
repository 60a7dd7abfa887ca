package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/catnb/internal/config"
	"github.com/YuminosukeSato/catnb/internal/engine"
	"github.com/YuminosukeSato/catnb/internal/store"
	"github.com/YuminosukeSato/catnb/pkg/errors"
	"github.com/YuminosukeSato/catnb/pkg/log"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catnb",
		Short:         "Categorical Naive Bayes classifier",
		Long:          "catnb trains a categorical Naive Bayes model on a CSV file, evaluates it, and serves predictions over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to YAML config file (defaults are used when empty)")
	root.PersistentFlags().String("log-level", "", "Override logging level (debug, info, warn, error)")

	root.AddCommand(
		newTrainCmd(),
		newPredictCmd(),
		newTestCmd(),
		newValidateCmd(),
		newSplitCmd(),
		newInfoCmd(),
		newExportCmd(),
		newServeCmd(),
	)
	return root
}

// loadConfig reads --config and applies --log-level, then installs the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := log.SetupLoggerWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app bundles what most subcommands need.
type app struct {
	cfg    *config.Config
	store  store.Store
	engine *engine.Engine
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// openApp loads the configuration and opens the configured store.
func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open store")
	}
	log.GetLoggerWithName("cli").Debug("Store opened", log.StoreBackendKey, cfg.Store.Backend)
	return &app{cfg: cfg, store: st, engine: engine.New(cfg, st)}, nil
}

// loadModel installs the model with the given id, or the latest one when id is empty.
func (a *app) loadModel(ctx context.Context, id string) error {
	if id != "" {
		return a.engine.Load(ctx, id)
	}
	ok, err := a.engine.Restore(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewModelNotTrainedError("load model")
	}
	return nil
}
