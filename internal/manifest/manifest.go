// Package manifest writes per-network deployment records next to the project,
// in the spirit of hardhat-deploy's deployments/ folder.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest is the latest deployment of one contract on one network
type Manifest struct {
	Contract     string    `yaml:"contract"`
	Network      string    `yaml:"network"`
	ChainID      int64     `yaml:"chain_id"`
	Address      string    `yaml:"address"`
	TxHash       string    `yaml:"tx_hash"`
	BlockNumber  uint64    `yaml:"block_number"`
	Deployer     string    `yaml:"deployer"`
	GasUsed      uint64    `yaml:"gas_used,omitempty"`
	Artifact     string    `yaml:"artifact,omitempty"`
	Compiler     string    `yaml:"compiler,omitempty"`
	DeployedAt   time.Time `yaml:"deployed_at"`
	Verified     bool      `yaml:"verified"`
	ExplorerLink string    `yaml:"explorer_link,omitempty"`
}

// Path returns where the manifest for contract on network lives under dir
func Path(dir, network, contract string) string {
	return filepath.Join(dir, network, contract+".yaml")
}

// Write stores m under dir, replacing any previous manifest for the same
// contract and network. The file is renamed into place.
func Write(dir string, m *Manifest) (string, error) {
	if m.Network == "" || m.Contract == "" {
		return "", fmt.Errorf("manifest needs a network and a contract")
	}

	path := Path(dir, m.Network, m.Contract)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating manifest directory: %w", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+m.Contract+"-*.yaml")
	if err != nil {
		return "", fmt.Errorf("creating manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return path, nil
}

// Read loads a manifest file
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// MarkVerified flips the verified flag of an existing manifest. A missing
// manifest is not an error.
func MarkVerified(dir, network, contract, address string) error {
	path := Path(dir, network, contract)
	m, err := Read(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if m.Address != address {
		return nil
	}
	m.Verified = true
	_, err = Write(dir, m)
	return err
}
