// Package foundry reads contract artifacts from Foundry projects.
package foundry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btube/btube-deploy/internal/chains"
)

// DefaultOutDir is forge's default output directory
const DefaultOutDir = "out"

// Builder implements chains.Builder for Foundry projects
type Builder struct {
	outDir string
}

// New creates a new Foundry builder. An empty outDir means "out".
func New(outDir string) *Builder {
	if outDir == "" {
		outDir = DefaultOutDir
	}
	return &Builder{outDir: outDir}
}

// Name returns the builder identifier
func (b *Builder) Name() string {
	return "foundry"
}

// DisplayName returns a human-readable name
func (b *Builder) DisplayName() string {
	return "Foundry"
}

// Chain returns the chain this builder targets
func (b *Builder) Chain() string {
	return "evm"
}

// ConfigFile returns the config file name
func (b *Builder) ConfigFile() string {
	return "foundry.toml"
}

// Detect checks if a directory is a Foundry project
func (b *Builder) Detect(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, b.ConfigFile()))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindArtifact locates out/{Source}.sol/{Name}.json and parses it
func (b *Builder) FindArtifact(dir string, contractName string) (*chains.Artifact, error) {
	outDir := filepath.Join(dir, b.outDir)
	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s directory not found - run 'forge build' first", chains.ErrArtifactNotFound, b.outDir)
	}

	var found string
	err := filepath.WalkDir(outDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != contractName+".json" || !strings.HasSuffix(filepath.Dir(path), ".sol") {
			return nil
		}
		found = path
		return filepath.SkipAll
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", outDir, err)
	}
	if found == "" {
		return nil, fmt.Errorf("%w: %s in %s", chains.ErrArtifactNotFound, contractName, outDir)
	}

	return b.Parse(found)
}

// Parse parses a Foundry artifact file
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var raw Artifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}

	contractName := strings.TrimSuffix(filepath.Base(artifactPath), ".json")

	// Interfaces and abstract contracts compile to nothing
	if raw.Bytecode.Object == "" || raw.Bytecode.Object == "0x" {
		return nil, fmt.Errorf("%w: %s (likely an interface or abstract contract)", chains.ErrNoBytecode, contractName)
	}

	var metadata Metadata
	if raw.RawMetadata != "" {
		_ = json.Unmarshal([]byte(raw.RawMetadata), &metadata) // Non-fatal, continue without metadata
	}

	return &chains.Artifact{
		Name:  contractName,
		Chain: "evm",
		Path:  artifactPath,
		EVM: &chains.EVMArtifact{
			SourcePath:       getFirstKey(metadata.Settings.CompilationTarget),
			ABI:              raw.ABI,
			Bytecode:         raw.Bytecode.Object,
			DeployedBytecode: raw.DeployedBytecode.Object,
			Compiler: chains.EVMCompiler{
				Version:    metadata.Compiler.Version,
				EVMVersion: metadata.Settings.EVMVersion,
				ViaIR:      metadata.Settings.ViaIR,
				Optimizer: chains.OptimizerConfig{
					Enabled: metadata.Settings.Optimizer.Enabled,
					Runs:    metadata.Settings.Optimizer.Runs,
				},
			},
		},
	}, nil
}

// VerificationInput extracts Standard JSON Input and full solc version from
// the build-info that produced the contract
func (b *Builder) VerificationInput(dir string, contractName string, sourcePath string) (*chains.VerificationInput, error) {
	bi, err := chains.FindBuildInfo(filepath.Join(dir, b.outDir, "build-info"), sourcePath, contractName)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'forge build --build-info')", err)
	}
	return bi.VerificationInput()
}

// Artifact represents the structure of a Foundry artifact JSON file
type Artifact struct {
	ABI              json.RawMessage `json:"abi"`
	Bytecode         BytecodeObject  `json:"bytecode"`
	DeployedBytecode BytecodeObject  `json:"deployedBytecode"`
	RawMetadata      string          `json:"rawMetadata"`
}

// BytecodeObject represents bytecode in a Foundry artifact
type BytecodeObject struct {
	Object         string                       `json:"object"`
	LinkReferences map[string]map[string][]Link `json:"linkReferences"`
}

// Link represents a library link reference
type Link struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// Metadata represents the parsed rawMetadata field
type Metadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Language string       `json:"language"`
	Settings SettingsMeta `json:"settings"`
}

// SettingsMeta contains compiler settings
type SettingsMeta struct {
	CompilationTarget map[string]string `json:"compilationTarget"`
	EVMVersion        string            `json:"evmVersion"`
	Optimizer         struct {
		Enabled bool `json:"enabled"`
		Runs    int  `json:"runs"`
	} `json:"optimizer"`
	ViaIR bool `json:"viaIR"`
}

// getFirstKey returns the first key from a map
func getFirstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}
