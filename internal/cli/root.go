// Package cli implements the btube-deploy command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/btube/btube-deploy/internal/config"
	"github.com/btube/btube-deploy/internal/deployer"
	"github.com/btube/btube-deploy/internal/observability/metrics"
	"github.com/btube/btube-deploy/internal/storage"
)

const serviceName = "btube-deploy"

// dialFunc connects a deployer to a network
type dialFunc func(ctx context.Context, rpcURL string, chainID int64, signer *deployer.Signer, logger *slog.Logger) (*deployer.Deployer, func(), error)

// app carries what every command needs. Commands never touch package state,
// so tests can build as many as they like.
type app struct {
	version string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer

	// flags
	configFile string
	projectDir string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger

	dial      dialFunc
	openStore func(cfg config.StorageConfig, logger *slog.Logger) (storage.Store, error)
}

func newApp(version string) *app {
	return &app{
		version:   version,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		dial:      deployer.Dial,
		openStore: storage.New,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Execute runs the CLI
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return newRootCmd(newApp(version)).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "btube-deploy",
		Short: "Deploy the DecentralizedVideoPlatform contract",
		Long: `btube-deploy deploys the DecentralizedVideoPlatform contract to goerli or
sepolia from compiled Hardhat or Foundry artifacts.

Credentials come from the environment (or a .env file):
  INFURA_API_KEY     Infura project key used in the network URLs
  PRIVATE_KEY        hex key of the deploying account
  ETHERSCAN_API_KEY  key for source verification`,
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "project config file (default: btube.toml in the project dir)")
	rootCmd.PersistentFlags().StringVar(&a.projectDir, "project", "", "project directory holding compiled artifacts (default: PROJECT_DIR or .)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default: LOG_LEVEL)")

	rootCmd.AddCommand(createDeployCmd(a))
	rootCmd.AddCommand(createVerifyCmd(a))
	rootCmd.AddCommand(createNetworksCmd(a))
	rootCmd.AddCommand(createDeploymentsCmd(a))
	rootCmd.AddCommand(createConfigCmd(a))
	rootCmd.AddCommand(createServeCmd(a))

	return rootCmd
}

// load reads env, .env and the project file, in that order of precedence
// from lowest to highest. Flags are applied by each command.
func (a *app) load() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if a.projectDir == "" {
		a.projectDir = cfg.Artifacts.ProjectDir
	}

	path := a.configFile
	if path == "" {
		path = config.FindProjectConfig(a.projectDir)
	} else if _, err := os.Stat(path); err != nil {
		// only a discovered file is optional
		return fmt.Errorf("reading --config: %w", err)
	}
	pc, err := config.LoadProject(path)
	if err != nil {
		return err
	}
	cfg.Apply(pc)

	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.Logging.Level, cfg.Logging.Format)
	metrics.Init(cfg.Metrics.Enabled, serviceName)

	if path != "" {
		a.logger.Debug("loaded project config", "path", path)
	}
	return nil
}

// openLedger opens and migrates the deployment store
func (a *app) openLedger(ctx context.Context) (storage.Store, error) {
	store, err := a.openStore(a.cfg.Storage, a.logger)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return store, nil
}

// pushMetrics sends one-shot counters to the Pushgateway, if configured
func (a *app) pushMetrics(ctx context.Context, job string) {
	if err := metrics.Push(ctx, a.cfg.Metrics.PushGatewayURL, job); err != nil {
		a.logger.Warn("metrics push failed", "error", err)
	}
}
