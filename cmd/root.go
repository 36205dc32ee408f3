// Package cmd defines and implements the CLI commands for the
// erddap-harvester executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oceanobs/erddap-harvester/internal/config"
	"github.com/oceanobs/erddap-harvester/internal/logging"
	"github.com/oceanobs/erddap-harvester/internal/progress"
	"github.com/oceanobs/erddap-harvester/internal/progress/sinks"
)

var (
	cfgFile string
	verbose bool
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App bundles the services every command needs: loaded configuration, the
// logger, and the progress hub. Built once in PersistentPreRunE and stored
// in the command context.
type App struct {
	Config config.Config
	Logger *zap.Logger
	Hub    *progress.Hub
}

// Close flushes the hub and the logger.
func (a *App) Close(ctx context.Context) {
	if a.Hub != nil {
		if err := a.Hub.Close(ctx); err != nil {
			a.Logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

// newApp is the application factory. It is a variable so tests can swap in
// a fake.
var newApp = func(_ context.Context) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, verbose)
	if err != nil {
		return nil, err
	}

	hubSinks := []progress.Sink{sinks.NewLogSink(logger)}
	if cfg.Metrics.Enabled {
		prom, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, fmt.Errorf("init prometheus sink: %w", err)
		}
		hubSinks = append(hubSinks, prom)
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, hubSinks...)

	return &App{Config: cfg, Logger: logger, Hub: hub}, nil
}

func resolveApp(ctx context.Context) (*App, error) {
	appInstance, ok := ctx.Value(appKey).(*App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "erddap-harvester",
		Short: "Catalog harvesting and datasets.xml maintenance for ERDDAP.",
		Long: `erddap-harvester crawls THREDDS and Hyrax catalog servers, collects
OPeNDAP dataset metadata, and generates ERDDAP datasets.xml entries. It can
also mirror another ERDDAP server's catalog, and it maintains existing
datasets.xml files: availability checks, duplicate detection and removal,
bulk activation changes, sourceUrl rewrites, and file comparison.`,

		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*App); ok && appInstance != nil {
				appInstance.Close(cmd.Context())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newDuplicatesCmd())
	cmd.AddCommand(newDedupeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newRewriteCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
