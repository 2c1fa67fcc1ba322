package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/config"
	"github.com/raaihank/stt-pii-datagen/internal/logger"
	"github.com/raaihank/stt-pii-datagen/internal/pool"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// app carries what every sub-command needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	loader *config.Loader
	cfg    *config.Config
	log    *logger.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "datagen",
		Short:         "Synthetic speech-to-text PII training data generator",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "configuration file (default: ./datagen.yaml, ./configs, $HOME/.datagen)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(generateCmd(a))
	rootCmd.AddCommand(verifyCmd(a))
	rootCmd.AddCommand(statsCmd(a))
	rootCmd.AddCommand(poolsCmd(a))
	rootCmd.AddCommand(runsCmd(a))
	rootCmd.AddCommand(serveCmd(a))

	return rootCmd
}

// setup loads configuration and builds the logger.
func (a *app) setup() error {
	a.loader = config.NewLoader()
	cfg, err := a.loader.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	a.log, err = newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if file := a.loader.ConfigFile(); file != "" {
		a.log.Debug("Configuration loaded", zap.String("file", file))
	}
	return nil
}

func newLogger(lc config.LoggingConfig) (*logger.Logger, error) {
	loggerConfig := logger.Config{
		Level:  lc.Level,
		Format: lc.Format,
	}
	if lc.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		}
	}
	return logger.New(loggerConfig)
}

// loadProvider returns the pools in path, or the built-in pools when path is
// empty. Either way the pools are validated.
func loadProvider(path string) (pool.Provider, error) {
	if path != "" {
		return pool.LoadFile(path)
	}
	provider := pool.Builtin()
	if err := pool.Validate(provider); err != nil {
		return nil, fmt.Errorf("built-in pools: %w", err)
	}
	return provider, nil
}
