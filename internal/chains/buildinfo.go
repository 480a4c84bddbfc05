package chains

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BuildInfo is a solc build-info file (hh-sol-build-info-1), written by
// both Hardhat and Foundry
type BuildInfo struct {
	ID              string          `json:"id"`
	Format          string          `json:"_format"`
	SolcVersion     string          `json:"solcVersion"`     // "0.8.0"
	SolcLongVersion string          `json:"solcLongVersion"` // "0.8.0+commit.c7dfd78e"
	Input           json.RawMessage `json:"input"`           // Standard JSON Input
	Output          json.RawMessage `json:"output"`
}

// ReadBuildInfo reads and decodes a build-info file
func ReadBuildInfo(path string) (*BuildInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading build-info: %w", err)
	}
	var bi BuildInfo
	if err := json.Unmarshal(data, &bi); err != nil {
		return nil, fmt.Errorf("parsing build-info %s: %w", filepath.Base(path), err)
	}
	return &bi, nil
}

// Produces reports whether the compilation emitted contracts[sourcePath][name]
func (bi *BuildInfo) Produces(sourcePath, name string) bool {
	var output struct {
		Contracts map[string]map[string]json.RawMessage `json:"contracts"`
	}
	if err := json.Unmarshal(bi.Output, &output); err != nil {
		return false
	}
	if sourcePath != "" {
		_, ok := output.Contracts[sourcePath][name]
		return ok
	}
	for _, contracts := range output.Contracts {
		if _, ok := contracts[name]; ok {
			return true
		}
	}
	return false
}

// standard JSON input only allows language, sources and settings
var nonStandardInputKeys = []string{"allowPaths", "basePath", "includePaths", "version"}

// VerificationInput returns the build's standard JSON input with tool-specific
// top-level keys removed
func (bi *BuildInfo) VerificationInput() (*VerificationInput, error) {
	var m map[string]any
	if err := json.Unmarshal(bi.Input, &m); err != nil {
		return nil, fmt.Errorf("parsing standard JSON input: %w", err)
	}
	for _, key := range nonStandardInputKeys {
		delete(m, key)
	}
	stdJSON, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	version := bi.SolcLongVersion
	if version == "" {
		version = bi.SolcVersion
	}
	return &VerificationInput{StandardJSON: stdJSON, SolcLongVersion: version}, nil
}

// FindBuildInfo scans dir for the build-info that produced the contract
func FindBuildInfo(dir, sourcePath, name string) (*BuildInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading build-info directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		bi, err := ReadBuildInfo(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		if bi.Produces(sourcePath, name) {
			return bi, nil
		}
	}
	return nil, fmt.Errorf("build-info not found for contract %s", name)
}
