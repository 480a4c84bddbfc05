//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/btube/btube-deploy/internal/chains"
	"github.com/btube/btube-deploy/internal/config"
	deploymentsDomain "github.com/btube/btube-deploy/internal/deployments/domain"
	"github.com/btube/btube-deploy/internal/deployer"
	"github.com/btube/btube-deploy/internal/server"
	"github.com/btube/btube-deploy/internal/storage"
	"github.com/btube/btube-deploy/pkg/client"
)

// init code that returns a single STOP byte as runtime code
const storeStopBytecode = "0x6001600c60003960016000f300"

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	TestServer        *httptest.Server
	Store             storage.Store
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("btube"),
		postgres.WithUsername("btube"),
		postgres.WithPassword("btube"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

// startServerE starts the ledger server in-process against postgres
func startServerE(connString string) (*httptest.Server, storage.Store, error) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Storage: config.StorageConfig{
			Type:     "postgres",
			Postgres: config.PostgresConfig{URL: connString},
		},
		Logging: config.LoggingConfig{Level: "debug", Format: "text"},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	srv := server.New(cfg, store, logger)
	return httptest.NewServer(srv.Handler()), store, nil
}

func newClient() *client.Client {
	return client.New(testCtx.TestServer.URL)
}

// deployAndRecord deploys to a fresh simulated chain and records the result
// the way the deploy command does
func deployAndRecord(t *testing.T, network string) *deployer.Deployment {
	t.Helper()
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := deployer.NewSigner(key)

	backend := simulated.NewBackend(types.GenesisAlloc{
		signer.Address: {Balance: new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))},
	})
	t.Cleanup(func() { _ = backend.Close() })

	mineCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-mineCtx.Done():
				return
			case <-ticker.C:
				backend.Commit()
			}
		}
	}()

	chainID, err := backend.Client().ChainID(ctx)
	require.NoError(t, err)

	factory, err := deployer.NewContractFactory(&chains.Artifact{
		Name:  "DecentralizedVideoPlatform",
		Chain: "evm",
		EVM:   &chains.EVMArtifact{ABI: json.RawMessage(`[]`), Bytecode: storeStopBytecode},
	})
	require.NoError(t, err)

	dep, err := deployer.New(backend.Client(), signer, chainID, nil).Deploy(ctx, factory, 30*time.Second)
	require.NoError(t, err)

	svc := deploymentsDomain.NewService(testCtx.Store)
	_, err = svc.Record(ctx, deploymentsDomain.RecordRequest{
		Contract:        dep.Contract,
		Network:         network,
		ChainID:         dep.ChainID.Int64(),
		Address:         dep.Address.Hex(),
		TxHash:          dep.TxHash.Hex(),
		DeployerAddress: dep.Deployer.Hex(),
		BlockNumber:     int64(dep.BlockNumber),
		GasUsed:         dep.GasUsed,
	})
	require.NoError(t, err)

	return dep
}
