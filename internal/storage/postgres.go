package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS deployments (
		id UUID PRIMARY KEY,
		contract_name TEXT NOT NULL,
		network TEXT NOT NULL,
		chain_id TEXT NOT NULL,
		address TEXT NOT NULL,
		deployer_address TEXT NOT NULL DEFAULT '',
		tx_hash TEXT NOT NULL DEFAULT '',
		block_number BIGINT NOT NULL DEFAULT 0,
		deployment_data JSONB,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		verified_at TIMESTAMPTZ,
		verified_on JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(chain_id, address)
	);

	CREATE INDEX IF NOT EXISTS idx_deployments_created ON deployments(created_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_deployments_network ON deployments(network);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Debug("postgres migrations applied")
	return nil
}

// RecordDeployment inserts a deployment. ID and CreatedAt are set when empty.
func (s *PostgresStore) RecordDeployment(ctx context.Context, d *Deployment) error {
	if d.ID == "" {
		d.ID = generateID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	data, err := marshalJSON(d.DeploymentData)
	if err != nil {
		return fmt.Errorf("encoding deployment data: %w", err)
	}
	verifiedOn, err := marshalJSON(d.VerifiedOn)
	if err != nil {
		return fmt.Errorf("encoding verified_on: %w", err)
	}

	query := `
		INSERT INTO deployments (id, contract_name, network, chain_id, address, deployer_address, tx_hash, block_number, deployment_data, verified, verified_on, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		d.ID, d.ContractName, d.Network, d.ChainID, d.Address, d.DeployerAddress, d.TxHash, d.BlockNumber,
		data, d.Verified, verifiedOn, d.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s on chain %s", ErrAlreadyExists, d.Address, d.ChainID)
	}
	return err
}

// GetDeployment retrieves a deployment
func (s *PostgresStore) GetDeployment(ctx context.Context, chainID, address string) (*Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE chain_id = $1 AND address = $2`
	d, err := scanPostgresDeployment(s.db.QueryRowContext(ctx, query, chainID, address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// ListDeployments lists deployments newest first
func (s *PostgresStore) ListDeployments(ctx context.Context, filter DeploymentFilter, pagination PaginationParams) (*PaginatedResult[Deployment], error) {
	query, args, err := listQuery(filter, pagination,
		func(n int) string { return fmt.Sprintf("$%d", n) },
		func(t time.Time) any { return t },
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []Deployment
	for rows.Next() {
		d, err := scanPostgresDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return paginate(deployments, pagination.Limit), nil
}

// UpdateVerificationStatus updates a deployment's verification status
func (s *PostgresStore) UpdateVerificationStatus(ctx context.Context, id string, verified bool, verifiedOn []string) error {
	list, err := marshalJSON(verifiedOn)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE deployments SET verified = $1, verified_at = CASE WHEN $1 THEN NOW() ELSE NULL END, verified_on = $2 WHERE id = $3",
		verified, list, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPostgresDeployment(row rowScanner) (*Deployment, error) {
	var d Deployment
	var data, verifiedOn []byte
	var verifiedAt sql.NullTime
	err := row.Scan(
		&d.ID, &d.ContractName, &d.Network, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber,
		&data, &d.Verified, &verifiedAt, &verifiedOn, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.CreatedAt = d.CreatedAt.UTC()
	d.DeploymentData = unmarshalData(data)
	d.VerifiedOn = unmarshalList(verifiedOn)
	if verifiedAt.Valid {
		t := verifiedAt.Time.UTC()
		d.VerifiedAt = &t
	}
	return &d, nil
}
