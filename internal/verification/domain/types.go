// Package domain contains the business logic for contract verification.
package domain

// VerifyRequest is the request to verify a deployed contract.
type VerifyRequest struct {
	Network    string
	ChainID    int64
	Address    string
	Contract   string
	ProjectDir string
	// RPC enables the local bytecode comparison when set
	RPC string
	// ConstructorArgs is ABI-encoded hex, without 0x
	ConstructorArgs string
	// SkipExplorer limits verification to the bytecode comparison
	SkipExplorer bool
}

// VerifyResult is the result of a verification.
type VerifyResult struct {
	Address    string   `json:"address"` // checksummed
	Verified   bool     `json:"verified"`
	MatchType  string   `json:"matchType"` // "full", "partial", "none", "skipped"
	Message    string   `json:"message"`
	Explorer   string   `json:"explorer,omitempty"` // etherscan outcome
	VerifiedOn []string `json:"verifiedOn,omitempty"`
}
