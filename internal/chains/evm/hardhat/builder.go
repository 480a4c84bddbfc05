// Package hardhat reads contract artifacts from Hardhat projects.
package hardhat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btube/btube-deploy/internal/chains"
)

// DefaultArtifactsDir is hardhat's default artifacts path
const DefaultArtifactsDir = "artifacts"

var configFiles = []string{"hardhat.config.js", "hardhat.config.ts", "hardhat.config.cjs"}

// Builder implements chains.Builder for Hardhat projects
type Builder struct {
	artifactsDir string
}

// New creates a new Hardhat builder. An empty artifactsDir means "artifacts".
func New(artifactsDir string) *Builder {
	if artifactsDir == "" {
		artifactsDir = DefaultArtifactsDir
	}
	return &Builder{artifactsDir: artifactsDir}
}

// Name returns the builder identifier
func (b *Builder) Name() string {
	return "hardhat"
}

// DisplayName returns a human-readable name
func (b *Builder) DisplayName() string {
	return "Hardhat"
}

// Chain returns the chain this builder targets
func (b *Builder) Chain() string {
	return "evm"
}

// ConfigFile returns the config file name
func (b *Builder) ConfigFile() string {
	return configFiles[0]
}

// Detect checks for any hardhat.config.* file
func (b *Builder) Detect(dir string) (bool, error) {
	for _, name := range configFiles {
		_, err := os.Stat(filepath.Join(dir, name))
		if err == nil {
			return true, nil
		}
		if !os.IsNotExist(err) {
			return false, err
		}
	}
	return false, nil
}

// FindArtifact locates artifacts/**/{Name}.sol/{Name}.json and parses it.
// Debug files and build-info are skipped.
func (b *Builder) FindArtifact(dir string, contractName string) (*chains.Artifact, error) {
	root := filepath.Join(dir, b.artifactsDir)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s directory not found - run 'npx hardhat compile' first", chains.ErrArtifactNotFound, b.artifactsDir)
	}

	var found string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
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
		return nil, fmt.Errorf("searching %s: %w", root, err)
	}
	if found == "" {
		return nil, fmt.Errorf("%w: %s in %s", chains.ErrArtifactNotFound, contractName, root)
	}

	return b.Parse(found)
}

// Parse parses a Hardhat artifact and, when its debug file is present, fills
// compiler details from the referenced build-info
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var raw Artifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}

	name := raw.ContractName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(artifactPath), ".json")
	}

	if raw.Bytecode == "" || raw.Bytecode == "0x" {
		return nil, fmt.Errorf("%w: %s (likely an interface or abstract contract)", chains.ErrNoBytecode, name)
	}

	artifact := &chains.Artifact{
		Name:  name,
		Chain: "evm",
		Path:  artifactPath,
		EVM: &chains.EVMArtifact{
			SourcePath:       raw.SourceName,
			ABI:              raw.ABI,
			Bytecode:         raw.Bytecode,
			DeployedBytecode: raw.DeployedBytecode,
		},
	}

	if bi, err := buildInfoFor(artifactPath); err == nil {
		artifact.EVM.Compiler = compilerFromBuildInfo(bi)
	}

	return artifact, nil
}

// VerificationInput returns the standard JSON input for a contract. The
// debug file's build-info pointer is tried first, then a scan of build-info.
func (b *Builder) VerificationInput(dir string, contractName string, sourcePath string) (*chains.VerificationInput, error) {
	artifact, err := b.FindArtifact(dir, contractName)
	if err != nil {
		return nil, err
	}
	if bi, err := buildInfoFor(artifact.Path); err == nil {
		return bi.VerificationInput()
	}

	if sourcePath == "" {
		sourcePath = artifact.EVM.SourcePath
	}
	bi, err := chains.FindBuildInfo(filepath.Join(dir, b.artifactsDir, "build-info"), sourcePath, contractName)
	if err != nil {
		return nil, err
	}
	return bi.VerificationInput()
}

// buildInfoFor follows {Name}.dbg.json next to an artifact to its build-info
func buildInfoFor(artifactPath string) (*chains.BuildInfo, error) {
	dbgPath := strings.TrimSuffix(artifactPath, ".json") + ".dbg.json"
	data, err := os.ReadFile(dbgPath)
	if err != nil {
		return nil, err
	}
	var dbg DebugFile
	if err := json.Unmarshal(data, &dbg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(dbgPath), err)
	}
	if dbg.BuildInfo == "" {
		return nil, fmt.Errorf("%s has no buildInfo", filepath.Base(dbgPath))
	}
	return chains.ReadBuildInfo(filepath.Join(filepath.Dir(dbgPath), filepath.FromSlash(dbg.BuildInfo)))
}

func compilerFromBuildInfo(bi *chains.BuildInfo) chains.EVMCompiler {
	var input struct {
		Settings struct {
			Optimizer struct {
				Enabled bool `json:"enabled"`
				Runs    int  `json:"runs"`
			} `json:"optimizer"`
			EVMVersion string `json:"evmVersion"`
			ViaIR      bool   `json:"viaIR"`
		} `json:"settings"`
	}
	_ = json.Unmarshal(bi.Input, &input)

	version := bi.SolcLongVersion
	if version == "" {
		version = bi.SolcVersion
	}
	return chains.EVMCompiler{
		Version:    version,
		EVMVersion: input.Settings.EVMVersion,
		ViaIR:      input.Settings.ViaIR,
		Optimizer: chains.OptimizerConfig{
			Enabled: input.Settings.Optimizer.Enabled,
			Runs:    input.Settings.Optimizer.Runs,
		},
	}
}

// Artifact is a hh-sol-artifact-1 file
type Artifact struct {
	Format           string          `json:"_format"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	LinkReferences   json.RawMessage `json:"linkReferences"`
}

// DebugFile is a hh-sol-dbg-1 file
type DebugFile struct {
	Format    string `json:"_format"`
	BuildInfo string `json:"buildInfo"`
}
