// Package validation provides input validation for btube-deploy.
package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/mod/semver"
)

// Solidity identifiers: letters, digits, $ and _, not starting with a digit
var contractNameRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]{0,127}$`)

// Network names as they appear in config files
var networkNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

var txHashRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidateContractName validates a Solidity contract name
func ValidateContractName(name string) error {
	if name == "" {
		return errors.New("contract name cannot be empty")
	}
	if !contractNameRegex.MatchString(name) {
		return errors.New("invalid contract name: must be a Solidity identifier")
	}
	return nil
}

// ValidateNetworkName validates a configured network name
func ValidateNetworkName(name string) error {
	if !networkNameRegex.MatchString(name) {
		return errors.New("invalid network name: must be lowercase alphanumeric with - or _, starting with a letter")
	}
	return nil
}

// ValidateAddress validates an Ethereum address. Mixed-case addresses must
// carry a valid EIP-55 checksum.
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	if !common.IsHexAddress(addr) {
		return errors.New("invalid address: contains non-hex characters")
	}
	body := addr[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if common.HexToAddress(addr).Hex() != addr {
			return errors.New("invalid address: bad EIP-55 checksum")
		}
	}
	return nil
}

// NormalizeAddress returns the checksummed form of a valid address
func NormalizeAddress(addr string) (string, error) {
	if err := ValidateAddress(addr); err != nil {
		return "", err
	}
	return common.HexToAddress(addr).Hex(), nil
}

// ValidateTxHash validates a transaction hash
func ValidateTxHash(hash string) error {
	if !txHashRegex.MatchString(hash) {
		return errors.New("invalid transaction hash: must be 0x + 64 hex")
	}
	return nil
}

// ValidateChainID validates a chain ID
func ValidateChainID(chainID int64) error {
	if chainID <= 0 {
		return errors.New("chain ID must be positive")
	}
	return nil
}

// ParseChainID parses and validates a decimal chain ID
func ParseChainID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.New("chain ID must be a decimal integer")
	}
	if err := ValidateChainID(id); err != nil {
		return 0, err
	}
	return id, nil
}

// ValidateSolidityVersion validates a solc version such as 0.8.0 or
// 0.8.0+commit.c7dfd78e
func ValidateSolidityVersion(v string) error {
	normalized := strings.TrimPrefix(v, "v")
	if normalized == "" {
		return errors.New("solidity version cannot be empty")
	}
	if !semver.IsValid("v" + normalized) {
		return errors.New("invalid solidity version: must be in format X.Y.Z")
	}
	main, _, _ := strings.Cut(normalized, "+")
	main, _, _ = strings.Cut(main, "-")
	if strings.Count(main, ".") != 2 {
		return errors.New("invalid solidity version: must be in format X.Y.Z (major.minor.patch)")
	}
	return nil
}
