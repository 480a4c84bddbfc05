package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ProjectConfigFiles is the search order for project config files
var ProjectConfigFiles = []string{"btube.toml", "btube-deploy.toml"}

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	Solidity       string                       `toml:"solidity,omitempty"`
	DefaultNetwork string                       `toml:"default_network,omitempty"`
	Contract       string                       `toml:"contract,omitempty"`
	Builder        string                       `toml:"builder,omitempty"`
	ArtifactsDir   string                       `toml:"artifacts_dir,omitempty"`
	Networks       map[string]NetworkConfigTOML `toml:"networks,omitempty"`
}

// NetworkConfigTOML is a network entry in btube.toml
type NetworkConfigTOML struct {
	URL         string   `toml:"url"`
	ChainID     int64    `toml:"chain_id,omitempty"`
	Accounts    []string `toml:"accounts,omitempty"`
	ExplorerAPI string   `toml:"explorer_api,omitempty"`
	ExplorerURL string   `toml:"explorer_url,omitempty"`
}

// FindProjectConfig returns the first project config file found in dir,
// or an empty string when there is none.
func FindProjectConfig(dir string) string {
	for _, name := range ProjectConfigFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadProject decodes the project file at path. A missing file is not an
// error and yields an empty ProjectConfig.
func LoadProject(path string) (*ProjectConfig, error) {
	pc := &ProjectConfig{}
	if path == "" {
		return pc, nil
	}
	if _, err := toml.DecodeFile(path, pc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pc, nil
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pc, nil
}

// Apply merges project settings over the environment configuration.
// ${VAR} references in network urls and accounts are expanded from the
// process environment.
func (c *Config) Apply(pc *ProjectConfig) {
	if pc == nil {
		return
	}
	if pc.Solidity != "" {
		c.Solidity = pc.Solidity
	}
	if pc.DefaultNetwork != "" {
		c.DefaultNetwork = pc.DefaultNetwork
	}
	if pc.Builder != "" {
		c.Artifacts.Builder = pc.Builder
	}
	if pc.ArtifactsDir != "" {
		c.Artifacts.ArtifactsDir = pc.ArtifactsDir
	}
	if pc.Contract != "" {
		c.Contract = pc.Contract
	}

	for name, nc := range pc.Networks {
		n := c.Networks[name]
		n.Name = name
		if nc.URL != "" {
			n.URL = os.ExpandEnv(nc.URL)
		}
		if nc.ChainID != 0 {
			n.ChainID = nc.ChainID
		}
		if len(nc.Accounts) > 0 {
			accts := make([]string, 0, len(nc.Accounts))
			for _, a := range nc.Accounts {
				accts = append(accts, os.ExpandEnv(a))
			}
			n.Accounts = accts
		}
		if nc.ExplorerAPI != "" {
			n.ExplorerAPI = nc.ExplorerAPI
		}
		if nc.ExplorerURL != "" {
			n.ExplorerURL = nc.ExplorerURL
		}
		c.Networks[name] = n
	}
}
