package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/catalogsync/catalogsync/internal/archive"
	"github.com/catalogsync/catalogsync/internal/catalog"
	"github.com/catalogsync/catalogsync/internal/config"
	"github.com/catalogsync/catalogsync/internal/engine"
	"github.com/catalogsync/catalogsync/internal/lock"
	"github.com/catalogsync/catalogsync/internal/logging"
	"github.com/catalogsync/catalogsync/internal/source"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

// Loaded once in PersistentPreRunE for commands that need configuration.
var (
	appConfig *config.Config
	appLogger *slog.Logger
)

// skipConfig marks commands that run without a config file.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:   "catalogsync",
	Short: "catalogsync - keep catalog metadata in step with relational databases",
	Long: `catalogsync reads key relationships, statistics and descriptions from
relational databases and spreadsheets and writes them to a DataHub catalog.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfig] == "true" {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		logger, err := logging.Setup(level, cfg.Logging.Directory)
		if err != nil {
			return fmt.Errorf("setting up logging: %w", err)
		}

		appConfig = cfg
		appLogger = logger
		return nil
	},
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newEngine wires the engine from the loaded configuration. The returned
// func releases the archive connection.
func newEngine(ctx context.Context) (*engine.Engine, func()) {
	var arch archive.Archiver = archive.Nop{}
	if appConfig.Archive.ConnectionString != "" {
		a, err := archive.NewMongoArchiver(ctx, appConfig.Archive.ConnectionString,
			appConfig.Archive.Database, appConfig.Archive.Collection)
		if err != nil {
			appLogger.Warn("archive unavailable, continuing without it", "error", err)
		} else {
			arch = a
		}
	}

	cat := catalog.New(appConfig.Catalog, appLogger)
	e := engine.New(appConfig, cat, source.Open, arch, appLogger)
	return e, func() {
		if err := arch.Close(ctx); err != nil {
			appLogger.Warn("closing archive", "error", err)
		}
	}
}

// acquireLock keeps other catalogsync processes off name until the returned
// func is called.
func acquireLock(name string) (func(), error) {
	l, err := lock.Acquire("", name)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := l.Release(); err != nil {
			appLogger.Warn("releasing lock", "name", name, "error", err)
		}
	}, nil
}

func requireDomain(flag, fallback string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("no domain given (use --domain or set it in the config file)")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.catalogsync/catalogsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
