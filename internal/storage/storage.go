package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/btube/btube-deploy/internal/config"
)

// DeploymentStore handles deployment ledger operations
type DeploymentStore interface {
	RecordDeployment(ctx context.Context, d *Deployment) error
	GetDeployment(ctx context.Context, chainID, address string) (*Deployment, error)
	ListDeployments(ctx context.Context, filter DeploymentFilter, pagination PaginationParams) (*PaginatedResult[Deployment], error)
	UpdateVerificationStatus(ctx context.Context, id string, verified bool, verifiedOn []string) error
}

// Store combines the ledger with lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	DeploymentStore

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
}

// Deployment is one contract creation recorded in the ledger. Every run of
// the deploy procedure adds a row.
type Deployment struct {
	ID              string
	ContractName    string
	Network         string
	ChainID         string
	Address         string
	DeployerAddress string
	TxHash          string
	BlockNumber     int64
	DeploymentData  map[string]any
	Verified        bool
	VerifiedAt      *time.Time
	VerifiedOn      []string
	CreatedAt       time.Time
}

// DeploymentFilter contains filter options for listing deployments
type DeploymentFilter struct {
	Network  string
	ChainID  string
	Contract string
	Verified *bool
}

// PaginationParams contains pagination options
type PaginationParams struct {
	Limit  int
	Cursor string
}

// PaginatedResult contains paginated results
type PaginatedResult[T any] struct {
	Data       []T
	HasMore    bool
	NextCursor string
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
