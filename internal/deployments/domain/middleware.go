package domain

import (
	"context"
	"log/slog"
	"time"
)

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(Service) Service {
	return func(next Service) Service {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   Service
	logger *slog.Logger
}

func (m *loggingMiddleware) Record(ctx context.Context, req RecordRequest) (*Deployment, error) {
	start := time.Now()
	d, err := m.next.Record(ctx, req)
	m.logger.Info("Record",
		"contract", req.Contract,
		"network", req.Network,
		"chainId", req.ChainID,
		"address", req.Address,
		"duration", time.Since(start),
		"error", err,
	)
	return d, err
}

func (m *loggingMiddleware) Get(ctx context.Context, chainID, address string) (*Deployment, error) {
	start := time.Now()
	d, err := m.next.Get(ctx, chainID, address)
	m.logger.Debug("Get",
		"chainId", chainID,
		"address", address,
		"duration", time.Since(start),
		"error", err,
	)
	return d, err
}

func (m *loggingMiddleware) List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error) {
	start := time.Now()
	result, err := m.next.List(ctx, filter, pagination)
	m.logger.Debug("List",
		"filter", filter,
		"limit", pagination.Limit,
		"duration", time.Since(start),
		"error", err,
	)
	return result, err
}

func (m *loggingMiddleware) UpdateVerificationStatus(ctx context.Context, chainID, address string, verified bool, verifiedOn []string) error {
	start := time.Now()
	err := m.next.UpdateVerificationStatus(ctx, chainID, address, verified, verifiedOn)
	m.logger.Info("UpdateVerificationStatus",
		"chainId", chainID,
		"address", address,
		"verified", verified,
		"verifiedOn", verifiedOn,
		"duration", time.Since(start),
		"error", err,
	)
	return err
}
