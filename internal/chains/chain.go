// Package chains defines compiled-contract artifacts and the builders that
// read them from a project directory.
package chains

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Common artifact errors
var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrNoBytecode       = errors.New("contract has no bytecode")
	ErrNoBuilder        = errors.New("no supported builder detected")
)

// Chain represents a blockchain ecosystem
type Chain interface {
	Name() string
	DisplayName() string

	DetectBuilder(dir string) (Builder, error)
	Builders() []Builder

	VerifyDeployment(ctx context.Context, opts VerifyOptions) (*VerifyResult, error)
	GetDeployedBytecode(ctx context.Context, rpc string, address string) ([]byte, error)
}

// Builder reads artifacts produced by a specific build tool
type Builder interface {
	Name() string        // "hardhat", "foundry"
	DisplayName() string // "Hardhat", "Foundry"
	Chain() string       // "evm"

	Detect(dir string) (bool, error)
	ConfigFile() string // "hardhat.config.js", "foundry.toml"

	// FindArtifact locates and parses the artifact of a named contract
	FindArtifact(dir string, contractName string) (*Artifact, error)
	// VerificationInput returns the standard JSON input the contract was compiled from
	VerificationInput(dir string, contractName string, sourcePath string) (*VerificationInput, error)
}

// VerifyOptions configures bytecode verification
type VerifyOptions struct {
	RPC          string
	Address      string
	ExpectedCode []byte
	Libraries    map[string]string
}

// VerifyResult contains verification results
type VerifyResult struct {
	Match     bool   // Whether the bytecode matches
	MatchType string // "full", "partial", "none"
	Message   string // Human-readable explanation
}

// VerificationInput is what a block explorer needs to reproduce a build
type VerificationInput struct {
	StandardJSON    []byte
	SolcLongVersion string // "0.8.0+commit.c7dfd78e"
}

// Artifact is a compiled contract
type Artifact struct {
	Name  string `json:"name"`
	Chain string `json:"chain"`
	Path  string `json:"path"` // artifact file the contract was read from

	EVM *EVMArtifact `json:"evm,omitempty"`
}

// QualifiedName returns "<sourcePath>:<Name>", the form explorers expect
func (a *Artifact) QualifiedName() string {
	if a.EVM == nil || a.EVM.SourcePath == "" {
		return a.Name
	}
	return fmt.Sprintf("%s:%s", a.EVM.SourcePath, a.Name)
}

// EVMArtifact contains EVM-specific contract data
type EVMArtifact struct {
	SourcePath       string          `json:"sourcePath"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	Compiler         EVMCompiler     `json:"compiler"`
}

// EVMCompiler contains EVM compiler details
type EVMCompiler struct {
	Version    string          `json:"version"` // "0.8.0+commit.c7dfd78e"
	Optimizer  OptimizerConfig `json:"optimizer"`
	EVMVersion string          `json:"evmVersion"`
	ViaIR      bool            `json:"viaIR"`
}

// OptimizerConfig contains optimizer settings
type OptimizerConfig struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}
