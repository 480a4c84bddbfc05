package cli

import (
	"net/url"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/btube/btube-deploy/internal/config"
)

// configView is the printable form of the resolved configuration.
// Secrets never appear in it unmasked.
type configView struct {
	Solidity       string                 `yaml:"solidity"`
	DefaultNetwork string                 `yaml:"default_network"`
	Contract       string                 `yaml:"contract"`
	Project        string                 `yaml:"project_dir"`
	Networks       map[string]networkView `yaml:"networks"`
	Etherscan      struct {
		APIKey         string  `yaml:"api_key"`
		RequestsPerSec float64 `yaml:"requests_per_sec"`
		PollSeconds    int     `yaml:"poll_seconds"`
	} `yaml:"etherscan"`
	Artifacts struct {
		Builder      string `yaml:"builder,omitempty"`
		ArtifactsDir string `yaml:"artifacts_dir,omitempty"`
	} `yaml:"artifacts"`
	Deploy struct {
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		ManifestDir    string `yaml:"manifest_dir"`
	} `yaml:"deploy"`
	Storage struct {
		Type string `yaml:"type"`
		DSN  string `yaml:"dsn"`
	} `yaml:"storage"`
	Metrics struct {
		Enabled     bool   `yaml:"enabled"`
		PushGateway string `yaml:"pushgateway,omitempty"`
	} `yaml:"metrics"`
}

type networkView struct {
	URL      string `yaml:"url"`
	ChainID  int64  `yaml:"chain_id"`
	Account  string `yaml:"account"`
	Explorer string `yaml:"explorer"`
}

func createConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(newConfigView(a.cfg, a.projectDir)); err != nil {
				return err
			}
			return enc.Close()
		},
	})

	return cmd
}

func newConfigView(cfg *config.Config, projectDir string) configView {
	v := configView{
		Solidity:       cfg.Solidity,
		DefaultNetwork: cfg.DefaultNetwork,
		Contract:       cfg.Contract,
		Project:        projectDir,
		Networks:       make(map[string]networkView, len(cfg.Networks)),
	}
	for name, n := range cfg.Networks {
		v.Networks[name] = networkView{
			URL:      n.MaskedURL(),
			ChainID:  n.ChainID,
			Account:  config.MaskSecret(n.SigningKey()),
			Explorer: n.ExplorerAPI,
		}
	}

	v.Etherscan.APIKey = config.MaskSecret(cfg.Etherscan.APIKey)
	v.Etherscan.RequestsPerSec = cfg.Etherscan.RequestsPerSec
	v.Etherscan.PollSeconds = cfg.Etherscan.PollSeconds
	v.Artifacts.Builder = cfg.Artifacts.Builder
	v.Artifacts.ArtifactsDir = cfg.Artifacts.ArtifactsDir
	v.Deploy.TimeoutSeconds = cfg.Deploy.TimeoutSeconds
	v.Deploy.ManifestDir = cfg.Deploy.ManifestDir

	v.Storage.Type = cfg.Storage.Type
	if cfg.Storage.Type == "postgres" {
		v.Storage.DSN = redactDSN(cfg.Storage.Postgres.URL)
	} else {
		v.Storage.DSN = cfg.Storage.SQLite.Path
	}

	v.Metrics.Enabled = cfg.Metrics.Enabled
	v.Metrics.PushGateway = cfg.Metrics.PushGatewayURL
	return v
}

// redactDSN hides the password of a postgres URL
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return config.MaskSecret(dsn)
	}
	return u.Redacted()
}
