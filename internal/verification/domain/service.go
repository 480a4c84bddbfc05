package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/btube/btube-deploy/internal/chains"
	ledger "github.com/btube/btube-deploy/internal/deployments/domain"
	"github.com/btube/btube-deploy/internal/etherscan"
	"github.com/btube/btube-deploy/internal/validation"
)

// Common errors returned by the verification service.
var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidChainID   = errors.New("invalid chain ID")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrExplorer         = errors.New("explorer verification failed")
)

// ExplorerName is recorded in the ledger for explorer-verified deployments.
const ExplorerName = "etherscan"

// ArtifactSource reads compiled artifacts. chains.Builder satisfies it.
type ArtifactSource interface {
	FindArtifact(dir string, contractName string) (*chains.Artifact, error)
	VerificationInput(dir string, contractName string, sourcePath string) (*chains.VerificationInput, error)
}

// BytecodeVerifier compares on-chain code with an artifact. chains.Chain satisfies it.
type BytecodeVerifier interface {
	VerifyDeployment(ctx context.Context, opts chains.VerifyOptions) (*chains.VerifyResult, error)
}

// Explorer publishes source code to a block explorer.
type Explorer interface {
	Verify(ctx context.Context, req etherscan.VerifyRequest) (etherscan.Result, error)
}

// Ledger marks recorded deployments as verified.
type Ledger interface {
	UpdateVerificationStatus(ctx context.Context, chainID, address string, verified bool, verifiedOn []string) error
}

// Service verifies deployments against local artifacts and the explorer.
type Service struct {
	artifacts ArtifactSource
	chain     BytecodeVerifier
	explorer  Explorer
	ledger    Ledger
	logger    *slog.Logger
}

// NewService creates a new verification service. explorer and ledger may be nil.
func NewService(artifacts ArtifactSource, chain BytecodeVerifier, explorer Explorer, ledger Ledger, logger *slog.Logger) *Service {
	return &Service{
		artifacts: artifacts,
		chain:     chain,
		explorer:  explorer,
		ledger:    ledger,
		logger:    logger,
	}
}

// Verify checks a deployed contract. The bytecode comparison runs first when
// an RPC endpoint is given. A mismatch is final only when the explorer is not
// consulted: runtime code with immutables never equals the artifact, and the
// explorer recompiles with the constructor arguments to decide.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	address, err := validation.NormalizeAddress(req.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if err := validation.ValidateChainID(req.ChainID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChainID, err)
	}

	artifact, err := s.artifacts.FindArtifact(req.ProjectDir, req.Contract)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactNotFound, err)
	}
	if artifact.EVM == nil {
		return nil, fmt.Errorf("%w: %s has no EVM output", ErrArtifactNotFound, req.Contract)
	}

	result := &VerifyResult{Address: address, MatchType: "skipped", Message: "No RPC endpoint, bytecode not compared"}
	useExplorer := s.explorer != nil && !req.SkipExplorer

	if req.RPC != "" {
		cmp, err := s.chain.VerifyDeployment(ctx, chains.VerifyOptions{
			RPC:          req.RPC,
			Address:      address,
			ExpectedCode: []byte(artifact.EVM.DeployedBytecode),
		})
		if err != nil {
			return nil, fmt.Errorf("comparing bytecode: %w", err)
		}
		result.MatchType = cmp.MatchType
		result.Message = cmp.Message
		switch {
		case cmp.Match:
			result.Verified = true
		case !useExplorer:
			return result, nil
		default:
			s.logger.Warn("bytecode differs from artifact, leaving the decision to the explorer",
				"address", address, "reason", cmp.Message)
		}
	}

	if useExplorer {
		input, err := s.artifacts.VerificationInput(req.ProjectDir, req.Contract, artifact.EVM.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("building verification input: %w", err)
		}

		outcome, err := s.explorer.Verify(ctx, etherscan.VerifyRequest{
			Address:         address,
			ContractName:    artifact.QualifiedName(),
			CompilerVersion: input.SolcLongVersion,
			StandardJSON:    input.StandardJSON,
			ConstructorArgs: req.ConstructorArgs,
		})
		result.Explorer = string(outcome)
		if err != nil {
			return result, fmt.Errorf("%w: %v", ErrExplorer, err)
		}
		result.Verified = true
		result.VerifiedOn = append(result.VerifiedOn, ExplorerName)
	}

	if result.Verified && s.ledger != nil {
		s.markLedger(ctx, req, address, result.VerifiedOn)
	}

	return result, nil
}

// markLedger records the outcome. Deployments made by other tools are not in
// the ledger, which is not an error.
func (s *Service) markLedger(ctx context.Context, req VerifyRequest, address string, verifiedOn []string) {
	chainID := strconv.FormatInt(req.ChainID, 10)
	err := s.ledger.UpdateVerificationStatus(ctx, chainID, address, true, verifiedOn)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrNotFound):
		s.logger.Debug("deployment not in ledger", "chainId", chainID, "address", address)
	default:
		s.logger.Warn("failed to update ledger", "chainId", chainID, "address", address, "error", err)
	}
}
