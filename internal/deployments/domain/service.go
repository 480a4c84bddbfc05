package domain

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/btube/btube-deploy/internal/storage"
	"github.com/btube/btube-deploy/internal/validation"
)

// Common errors returned by the deployment service.
var (
	ErrNotFound       = errors.New("deployment not found")
	ErrAlreadyExists  = errors.New("deployment already recorded")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidChainID = errors.New("invalid chain ID")
	ErrInvalidRequest = errors.New("invalid request")
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service defines the deployment service interface.
type Service interface {
	// Record records a new deployment.
	Record(ctx context.Context, req RecordRequest) (*Deployment, error)

	// Get retrieves a deployment by chain and address.
	Get(ctx context.Context, chainID, address string) (*Deployment, error)

	// List lists deployments with filtering and pagination.
	List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error)

	// UpdateVerificationStatus updates the verification status of a deployment.
	UpdateVerificationStatus(ctx context.Context, chainID, address string, verified bool, verifiedOn []string) error
}

// service implements the Service interface.
type service struct {
	store storage.DeploymentStore
}

// NewService creates a new deployment service.
func NewService(store storage.DeploymentStore) Service {
	return &service{store: store}
}

// Record records a new deployment.
func (s *service) Record(ctx context.Context, req RecordRequest) (*Deployment, error) {
	address, err := validation.NormalizeAddress(req.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if err := validation.ValidateChainID(req.ChainID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChainID, err)
	}

	if err := validation.ValidateContractName(req.Contract); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Network == "" {
		return nil, fmt.Errorf("%w: network is required", ErrInvalidRequest)
	}

	deployer := req.DeployerAddress
	if deployer != "" {
		if deployer, err = validation.NormalizeAddress(deployer); err != nil {
			return nil, fmt.Errorf("%w: deployer: %v", ErrInvalidAddress, err)
		}
	}

	deploymentData := make(map[string]any)
	if req.GasUsed > 0 {
		deploymentData["gasUsed"] = req.GasUsed
	}
	if req.ArtifactPath != "" {
		deploymentData["artifactPath"] = req.ArtifactPath
	}
	if req.CompilerVersion != "" {
		deploymentData["compilerVersion"] = req.CompilerVersion
	}
	if req.ConstructorArgs != "" {
		deploymentData["constructorArgs"] = req.ConstructorArgs
	}

	deployment := &storage.Deployment{
		ID:              uuid.New().String(),
		ContractName:    req.Contract,
		Network:         req.Network,
		ChainID:         strconv.FormatInt(req.ChainID, 10),
		Address:         address,
		DeployerAddress: deployer,
		TxHash:          req.TxHash,
		BlockNumber:     req.BlockNumber,
		DeploymentData:  deploymentData,
	}

	if err := s.store.RecordDeployment(ctx, deployment); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s on chain %d", ErrAlreadyExists, address, req.ChainID)
		}
		return nil, fmt.Errorf("recording deployment: %w", err)
	}

	return toDeployment(deployment), nil
}

// Get retrieves a deployment by chain and address.
func (s *service) Get(ctx context.Context, chainID, address string) (*Deployment, error) {
	if _, err := validation.ParseChainID(chainID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChainID, err)
	}
	normalized, err := validation.NormalizeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	deployment, err := s.store.GetDeployment(ctx, chainID, normalized)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting deployment: %w", err)
	}

	return toDeployment(deployment), nil
}

// List lists deployments with filtering and pagination.
func (s *service) List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error) {
	limit := pagination.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	result, err := s.store.ListDeployments(ctx, storage.DeploymentFilter{
		Network:  filter.Network,
		ChainID:  filter.ChainID,
		Contract: filter.Contract,
		Verified: filter.Verified,
	}, storage.PaginationParams{
		Limit:  limit,
		Cursor: pagination.Cursor,
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCursor) {
			return nil, fmt.Errorf("%w: bad cursor", ErrInvalidRequest)
		}
		return nil, fmt.Errorf("listing deployments: %w", err)
	}

	deployments := make([]Deployment, len(result.Data))
	for i := range result.Data {
		deployments[i] = *toDeployment(&result.Data[i])
	}

	return &ListResult{
		Deployments: deployments,
		HasMore:     result.HasMore,
		NextCursor:  result.NextCursor,
	}, nil
}

// UpdateVerificationStatus updates the verification status of a deployment.
func (s *service) UpdateVerificationStatus(ctx context.Context, chainID, address string, verified bool, verifiedOn []string) error {
	deployment, err := s.Get(ctx, chainID, address)
	if err != nil {
		return err
	}

	if err := s.store.UpdateVerificationStatus(ctx, deployment.ID, verified, verifiedOn); err != nil {
		return fmt.Errorf("updating verification status: %w", err)
	}

	return nil
}

func toDeployment(d *storage.Deployment) *Deployment {
	return &Deployment{
		ID:              d.ID,
		ContractName:    d.ContractName,
		Network:         d.Network,
		ChainID:         d.ChainID,
		Address:         d.Address,
		DeployerAddress: d.DeployerAddress,
		TxHash:          d.TxHash,
		BlockNumber:     d.BlockNumber,
		DeploymentData:  d.DeploymentData,
		Verified:        d.Verified,
		VerifiedAt:      d.VerifiedAt,
		VerifiedOn:      d.VerifiedOn,
		CreatedAt:       d.CreatedAt,
	}
}
