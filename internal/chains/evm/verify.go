package evm

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/mod/semver"

	"github.com/btube/btube-deploy/internal/chains"
)

// CBOR metadata marker (Solidity >=0.6.0) - "ipfs" in CBOR
var metadataMarker = []byte{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73}

// Library placeholder pattern: __$<34 hex chars>$__
var libraryPlaceholder = regexp.MustCompile(`__\$[a-f0-9]{34}\$__`)

// StripMetadata removes the CBOR metadata appended to bytecode
func StripMetadata(bytecode []byte) []byte {
	idx := bytes.LastIndex(bytecode, metadataMarker)
	if idx == -1 {
		return bytecode
	}
	// marker starts at the CBOR map header; the two-byte length trails the map
	return bytecode[:idx]
}

// DecodeHex decodes hex bytecode with or without a 0x prefix
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if HasLibraryPlaceholders([]byte(s)) {
		return nil, fmt.Errorf("bytecode has unlinked library placeholders")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding bytecode: %w", err)
	}
	return b, nil
}

// CompareBytecode compares deployed bytecode to artifact bytecode. The
// artifact side may still be 0x-prefixed hex with library placeholders.
func CompareBytecode(deployed, artifact []byte, libraries map[string]string) *chains.VerifyResult {
	if len(artifact) > 2 && artifact[0] == '0' && artifact[1] == 'x' {
		hexCode := string(artifact[2:])
		if len(libraries) > 0 {
			hexCode = LinkLibraries(hexCode, libraries)
		}
		if decoded, err := hex.DecodeString(hexCode); err == nil {
			artifact = decoded
		}
	}

	if bytes.Equal(deployed, artifact) {
		return &chains.VerifyResult{
			Match:     true,
			MatchType: "full",
			Message:   "Bytecode matches exactly including metadata",
		}
	}

	if bytes.Equal(StripMetadata(deployed), StripMetadata(artifact)) {
		return &chains.VerifyResult{
			Match:     true,
			MatchType: "partial",
			Message:   "Executable code matches, metadata differs (different source paths, comments, or build environment)",
		}
	}

	return &chains.VerifyResult{
		Match:     false,
		MatchType: "none",
		Message:   "Bytecode does not match",
	}
}

// LibraryPlaceholder returns the link placeholder solc emits for a fully
// qualified library name such as "contracts/Lib.sol:Lib"
func LibraryPlaceholder(qualifiedName string) string {
	hash := crypto.Keccak256([]byte(qualifiedName))
	return "__$" + hex.EncodeToString(hash)[:34] + "$__"
}

// LinkLibraries replaces placeholders in hex bytecode with library addresses,
// keyed by fully qualified library name
func LinkLibraries(bytecodeHex string, libraries map[string]string) string {
	for name, addr := range libraries {
		addr = strings.ToLower(strings.TrimPrefix(addr, "0x"))
		bytecodeHex = strings.ReplaceAll(bytecodeHex, LibraryPlaceholder(name), addr)
	}
	return bytecodeHex
}

// HasLibraryPlaceholders checks if bytecode contains library placeholders
func HasLibraryPlaceholders(bytecode []byte) bool {
	return libraryPlaceholder.Match(bytecode)
}

// CheckCompilerVersion reports whether an artifact was compiled with the
// configured solidity version. Commit suffixes are ignored.
func CheckCompilerVersion(configured, compiled string) error {
	if configured == "" || compiled == "" {
		return nil
	}
	want := canonicalVersion(configured)
	got := canonicalVersion(compiled)
	if !semver.IsValid(want) {
		return fmt.Errorf("invalid solidity version %q", configured)
	}
	if !semver.IsValid(got) {
		return fmt.Errorf("invalid compiler version %q in artifact", compiled)
	}
	if semver.Compare(want, got) != 0 {
		return fmt.Errorf("compilation mismatch: configured solidity %s, artifact built with %s", configured, compiled)
	}
	return nil
}

func canonicalVersion(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "+-"); i != -1 {
		v = v[:i]
	}
	return "v" + v
}
