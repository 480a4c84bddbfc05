package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS deployments (
		id TEXT PRIMARY KEY,
		contract_name TEXT NOT NULL,
		network TEXT NOT NULL,
		chain_id TEXT NOT NULL,
		address TEXT NOT NULL,
		deployer_address TEXT NOT NULL DEFAULT '',
		tx_hash TEXT NOT NULL DEFAULT '',
		block_number INTEGER NOT NULL DEFAULT 0,
		deployment_data TEXT,
		verified INTEGER NOT NULL DEFAULT 0,
		verified_at TEXT,
		verified_on TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(chain_id, address)
	);

	CREATE INDEX IF NOT EXISTS idx_deployments_created ON deployments(created_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_deployments_network ON deployments(network);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Debug("sqlite migrations applied")
	return nil
}

// RecordDeployment inserts a deployment. ID and CreatedAt are set when empty.
func (s *SQLiteStore) RecordDeployment(ctx context.Context, d *Deployment) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		d.ID, d.ContractName, d.Network, d.ChainID, d.Address, d.DeployerAddress, d.TxHash, d.BlockNumber,
		data, d.Verified, verifiedOn, d.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s on chain %s", ErrAlreadyExists, d.Address, d.ChainID)
	}
	return err
}

// GetDeployment retrieves a deployment
func (s *SQLiteStore) GetDeployment(ctx context.Context, chainID, address string) (*Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE chain_id = ? AND address = ?`
	d, err := scanSQLiteDeployment(s.db.QueryRowContext(ctx, query, chainID, address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// ListDeployments lists deployments newest first
func (s *SQLiteStore) ListDeployments(ctx context.Context, filter DeploymentFilter, pagination PaginationParams) (*PaginatedResult[Deployment], error) {
	query, args, err := listQuery(filter, pagination,
		func(int) string { return "?" },
		func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
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
		d, err := scanSQLiteDeployment(rows)
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
func (s *SQLiteStore) UpdateVerificationStatus(ctx context.Context, id string, verified bool, verifiedOn []string) error {
	list, err := marshalJSON(verifiedOn)
	if err != nil {
		return err
	}
	var verifiedAt any
	if verified {
		verifiedAt = time.Now().UTC().Format(sqliteTimeLayout)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE deployments SET verified = ?, verified_at = ?, verified_on = ? WHERE id = ?",
		verified, verifiedAt, list, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDeployment(row rowScanner) (*Deployment, error) {
	var d Deployment
	var data, verifiedOn []byte
	var verifiedAt sql.NullString
	var createdAt string
	err := row.Scan(
		&d.ID, &d.ContractName, &d.Network, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber,
		&data, &d.Verified, &verifiedAt, &verifiedOn, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	d.DeploymentData = unmarshalData(data)
	d.VerifiedOn = unmarshalList(verifiedOn)
	if t, err := time.Parse(sqliteTimeLayout, createdAt); err == nil {
		d.CreatedAt = t
	}
	if verifiedAt.Valid {
		if t, err := time.Parse(sqliteTimeLayout, verifiedAt.String); err == nil {
			d.VerifiedAt = &t
		}
	}
	return &d, nil
}
