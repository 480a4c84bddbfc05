package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Common configuration errors
var (
	ErrUnknownNetwork = errors.New("unknown network")
	ErrMissingEnv     = errors.New("missing environment variable")
)

// EtherscanV2API is the multichain Etherscan endpoint. The chain is picked
// per call with the chainid parameter.
const EtherscanV2API = "https://api.etherscan.io/v2/api"

// DefaultContract is the contract deployed when none is named
const DefaultContract = "DecentralizedVideoPlatform"

// Config holds all configuration for btube-deploy
type Config struct {
	Solidity       string
	DefaultNetwork string
	Contract       string
	Networks       map[string]Network
	Etherscan      EtherscanConfig
	Artifacts      ArtifactsConfig
	Deploy         DeployConfig
	Storage        StorageConfig
	Logging        LoggingConfig
	Metrics        MetricsConfig
	Server         ServerConfig
}

// Network is a remote JSON-RPC endpoint plus the accounts that sign for it
type Network struct {
	Name        string
	URL         string
	ChainID     int64
	Accounts    []string
	ExplorerAPI string
	ExplorerURL string // block explorer web UI, used for address links
}

// EtherscanConfig holds verification service settings
type EtherscanConfig struct {
	APIKey         string
	RequestsPerSec float64
	PollSeconds    int
}

// ArtifactsConfig points at compiled contract output
type ArtifactsConfig struct {
	ProjectDir   string
	Builder      string // "hardhat", "foundry" or "" for auto-detect
	ArtifactsDir string // overrides the builder default ("artifacts" or "out")
}

// DeployConfig holds deployment settings
type DeployConfig struct {
	TimeoutSeconds int
	ManifestDir    string
}

// StorageConfig holds deployment ledger storage configuration
type StorageConfig struct {
	Type     string // "sqlite" or "postgres"
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	URL string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// MetricsConfig holds prometheus settings
type MetricsConfig struct {
	Enabled        bool
	PushGatewayURL string
}

// ServerConfig holds settings for the read-only ledger API
type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	RequestsPerMin int // 0 disables rate limiting
	BurstSize      int
	TrustProxy     bool
	TrustedProxies []string // CIDRs or single IPs
}

// infuraURL builds the Infura endpoint for a named test network
func infuraURL(network, key string) string {
	return fmt.Sprintf("https://%s.infura.io/v3/%s", network, key)
}

// accounts returns the signing accounts for the built-in networks
func accounts(privateKey string) []string {
	return []string{privateKey}
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first; variables already set in the process win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	infuraKey := os.Getenv("INFURA_API_KEY")
	privateKey := os.Getenv("PRIVATE_KEY")

	cfg := &Config{
		Solidity:       getEnv("SOLIDITY_VERSION", "0.8.0"),
		DefaultNetwork: getEnv("DEFAULT_NETWORK", "sepolia"),
		Contract:       getEnv("CONTRACT_NAME", DefaultContract),
		Networks: map[string]Network{
			"goerli": {
				Name:        "goerli",
				URL:         infuraURL("goerli", infuraKey),
				ChainID:     5,
				Accounts:    accounts(privateKey),
				ExplorerAPI: EtherscanV2API,
				ExplorerURL: "https://goerli.etherscan.io",
			},
			"sepolia": {
				Name:        "sepolia",
				URL:         infuraURL("sepolia", infuraKey),
				ChainID:     11155111,
				Accounts:    accounts(privateKey),
				ExplorerAPI: EtherscanV2API,
				ExplorerURL: "https://sepolia.etherscan.io",
			},
		},
		Etherscan: EtherscanConfig{
			APIKey:         os.Getenv("ETHERSCAN_API_KEY"),
			RequestsPerSec: getEnvFloat("ETHERSCAN_RPS", 5),
			PollSeconds:    getEnvInt("ETHERSCAN_POLL_SECONDS", 3),
		},
		Artifacts: ArtifactsConfig{
			ProjectDir:   getEnv("PROJECT_DIR", "."),
			Builder:      getEnv("ARTIFACTS_BUILDER", ""),
			ArtifactsDir: getEnv("ARTIFACTS_DIR", ""),
		},
		Deploy: DeployConfig{
			TimeoutSeconds: getEnvInt("DEPLOY_TIMEOUT_SECONDS", 600),
			ManifestDir:    getEnv("MANIFEST_DIR", "deployments"),
		},
		Storage: StorageConfig{
			Type: getEnv("STORAGE_TYPE", "sqlite"),
			Postgres: PostgresConfig{
				URL: getEnv("DATABASE_URL", ""),
			},
			SQLite: SQLiteConfig{
				Path: getEnv("SQLITE_PATH", "./data/btube-deploy.db"),
			},
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Metrics: MetricsConfig{
			Enabled:        getEnvBool("METRICS_ENABLED", true),
			PushGatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
		},
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8080),
			Host:           getEnv("HOST", "0.0.0.0"),
			ReadTimeout:    getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:   getEnvInt("SERVER_WRITE_TIMEOUT", 60),
			RequestsPerMin: getEnvInt("RATE_LIMIT_RPM", 300),
			BurstSize:      getEnvInt("RATE_LIMIT_BURST", 50),
			TrustProxy:     getEnvBool("TRUST_PROXY", false),
			TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		},
	}

	// If DATABASE_URL is set, default to postgres
	if cfg.Storage.Postgres.URL != "" && cfg.Storage.Type == "sqlite" {
		cfg.Storage.Type = "postgres"
	}

	return cfg, nil
}

// Network returns the named network
func (c *Config) Network(name string) (Network, error) {
	if name == "" {
		name = c.DefaultNetwork
	}
	n, ok := c.Networks[name]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q (configured: %s)", ErrUnknownNetwork, name, strings.Join(c.NetworkNames(), ", "))
	}
	return n, nil
}

// NetworkNames returns the configured network names in sorted order
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateForDeploy checks that a network can sign and reach its endpoint
func (n Network) ValidateForDeploy() error {
	if n.URL == "" {
		return fmt.Errorf("network %s has no url", n.Name)
	}
	if strings.HasSuffix(n.URL, "/v3/") {
		return fmt.Errorf("%w: INFURA_API_KEY is required for network %s", ErrMissingEnv, n.Name)
	}
	if n.SigningKey() == "" {
		return fmt.Errorf("%w: PRIVATE_KEY is required for network %s", ErrMissingEnv, n.Name)
	}
	return nil
}

// AddressLink returns the explorer page for address, or "" when the network
// has no explorer UI configured.
func (n Network) AddressLink(address string) string {
	if n.ExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(n.ExplorerURL, "/") + "/address/" + address
}

// SigningKey returns the first configured account
func (n Network) SigningKey() string {
	for _, a := range n.Accounts {
		if strings.TrimSpace(a) != "" {
			return strings.TrimSpace(a)
		}
	}
	return ""
}

// WithSigningKey returns a copy of the network that signs with key
func (n Network) WithSigningKey(key string) Network {
	n.Accounts = accounts(key)
	return n
}

// ValidateForVerify checks that the verification service can be called
func (c *Config) ValidateForVerify(n Network) error {
	if c.Etherscan.APIKey == "" {
		return fmt.Errorf("%w: ETHERSCAN_API_KEY is required for verification", ErrMissingEnv)
	}
	if n.ExplorerAPI == "" {
		return fmt.Errorf("network %s has no explorer api configured", n.Name)
	}
	return nil
}

// MaskedURL returns the network URL with a trailing API key hidden
func (n Network) MaskedURL() string {
	idx := strings.LastIndex(n.URL, "/")
	if idx == -1 || idx == len(n.URL)-1 {
		return n.URL
	}
	return n.URL[:idx+1] + MaskSecret(n.URL[idx+1:])
}

// MaskSecret masks a secret for display
func MaskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}
