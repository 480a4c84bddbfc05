package etherscan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status strings returned by checkverifystatus
const (
	statusPending         = "Pending in queue"
	statusPass            = "Pass - Verified"
	statusAlreadyVerified = "already verified"
)

// Result of a completed verification
type Result string

// Verification outcomes
const (
	ResultVerified        Result = "verified"
	ResultAlreadyVerified Result = "already_verified"
	ResultFailed          Result = "failed"
)

// VerifyRequest describes a contract to verify from standard JSON input
type VerifyRequest struct {
	Address string
	// ContractName is the fully qualified name, "contracts/X.sol:X"
	ContractName string
	// CompilerVersion is the long solc version, with or without the leading v
	CompilerVersion string
	StandardJSON    []byte
	// ConstructorArgs is ABI-encoded hex without 0x
	ConstructorArgs string
}

// response is the envelope every API call returns
type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// resultString returns result when it is a JSON string
func (r *response) resultString() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err != nil {
		return strings.Trim(string(r.Result), `"`)
	}
	return s
}

// sourceCodeEntry is one element of getsourcecode's result
type sourceCodeEntry struct {
	SourceCode      string `json:"SourceCode"`
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
}

// APIError is returned when the service answers with status "0"
type APIError struct {
	Message string
	Result  string
}

func (e *APIError) Error() string {
	if e.Result == "" {
		return fmt.Sprintf("etherscan: %s", e.Message)
	}
	return fmt.Sprintf("etherscan: %s: %s", e.Message, e.Result)
}

// VerificationFailedError carries the reason a submission was rejected
type VerificationFailedError struct {
	GUID   string
	Reason string
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("verification %s failed: %s", e.GUID, e.Reason)
}
