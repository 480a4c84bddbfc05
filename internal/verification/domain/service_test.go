package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btube/btube-deploy/internal/chains"
	ledger "github.com/btube/btube-deploy/internal/deployments/domain"
	"github.com/btube/btube-deploy/internal/etherscan"
)

const testAddress = "0x1234567890123456789012345678901234567890"

// mockArtifacts implements ArtifactSource for testing
type mockArtifacts struct {
	artifact *chains.Artifact
	findErr  error
	input    *chains.VerificationInput
	inputErr error
}

func (m *mockArtifacts) FindArtifact(dir, name string) (*chains.Artifact, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.artifact, nil
}

func (m *mockArtifacts) VerificationInput(dir, name, sourcePath string) (*chains.VerificationInput, error) {
	if m.inputErr != nil {
		return nil, m.inputErr
	}
	return m.input, nil
}

// mockChain implements BytecodeVerifier for testing
type mockChain struct {
	result *chains.VerifyResult
	err    error
	opts   chains.VerifyOptions
	calls  int
}

func (m *mockChain) VerifyDeployment(ctx context.Context, opts chains.VerifyOptions) (*chains.VerifyResult, error) {
	m.calls++
	m.opts = opts
	return m.result, m.err
}

// mockExplorer implements Explorer for testing
type mockExplorer struct {
	outcome etherscan.Result
	err     error
	req     etherscan.VerifyRequest
	calls   int
}

func (m *mockExplorer) Verify(ctx context.Context, req etherscan.VerifyRequest) (etherscan.Result, error) {
	m.calls++
	m.req = req
	return m.outcome, m.err
}

// mockLedger implements Ledger for testing
type mockLedger struct {
	err        error
	chainID    string
	address    string
	verifiedOn []string
	calls      int
}

func (m *mockLedger) UpdateVerificationStatus(ctx context.Context, chainID, address string, verified bool, verifiedOn []string) error {
	m.calls++
	m.chainID = chainID
	m.address = address
	m.verifiedOn = verifiedOn
	return m.err
}

func testArtifacts() *mockArtifacts {
	return &mockArtifacts{
		artifact: &chains.Artifact{
			Name:  "DecentralizedVideoPlatform",
			Chain: "evm",
			EVM: &chains.EVMArtifact{
				SourcePath:       "contracts/DecentralizedVideoPlatform.sol",
				DeployedBytecode: "0x6080",
			},
		},
		input: &chains.VerificationInput{
			StandardJSON:    []byte(`{"language":"Solidity"}`),
			SolcLongVersion: "0.8.0+commit.c7dfd78e",
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseRequest() VerifyRequest {
	return VerifyRequest{
		Network:  "sepolia",
		ChainID:  11155111,
		Address:  testAddress,
		Contract: "DecentralizedVideoPlatform",
		RPC:      "http://rpc.test",
	}
}

func TestVerify_InvalidInput(t *testing.T) {
	svc := NewService(testArtifacts(), &mockChain{}, nil, nil, discardLogger())

	req := baseRequest()
	req.Address = "invalid-address"
	_, err := svc.Verify(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	req = baseRequest()
	req.ChainID = -1
	_, err = svc.Verify(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidChainID)
}

func TestVerify_ArtifactNotFound(t *testing.T) {
	artifacts := testArtifacts()
	artifacts.findErr = chains.ErrArtifactNotFound
	svc := NewService(artifacts, &mockChain{}, nil, nil, discardLogger())

	_, err := svc.Verify(context.Background(), baseRequest())
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestVerify_BytecodeMismatchSkipsExplorer(t *testing.T) {
	chain := &mockChain{result: &chains.VerifyResult{Match: false, MatchType: "none", Message: "Bytecode does not match"}}
	explorer := &mockExplorer{}
	led := &mockLedger{}
	svc := NewService(testArtifacts(), chain, explorer, led, discardLogger())

	req := baseRequest()
	req.SkipExplorer = true
	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, "none", result.MatchType)
	assert.Equal(t, 0, explorer.calls)
	assert.Equal(t, 0, led.calls)
	assert.Equal(t, []byte("0x6080"), chain.opts.ExpectedCode)
}

func TestVerify_BytecodeMismatchWithoutExplorer(t *testing.T) {
	chain := &mockChain{result: &chains.VerifyResult{Match: false, MatchType: "none", Message: "Bytecode does not match"}}
	led := &mockLedger{}
	svc := NewService(testArtifacts(), chain, nil, led, discardLogger())

	result, err := svc.Verify(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, 0, led.calls)
}

// immutables make the runtime code differ from the artifact
func TestVerify_BytecodeMismatchDefersToExplorer(t *testing.T) {
	chain := &mockChain{result: &chains.VerifyResult{Match: false, MatchType: "none", Message: "Bytecode does not match"}}

	t.Run("explorer verifies", func(t *testing.T) {
		explorer := &mockExplorer{outcome: etherscan.ResultVerified}
		led := &mockLedger{}
		svc := NewService(testArtifacts(), chain, explorer, led, discardLogger())

		result, err := svc.Verify(context.Background(), baseRequest())
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, "none", result.MatchType)
		assert.Equal(t, "verified", result.Explorer)
		assert.Equal(t, 1, explorer.calls)
		assert.Equal(t, 1, led.calls)
		assert.Equal(t, []string{ExplorerName}, led.verifiedOn)
	})

	t.Run("explorer rejects", func(t *testing.T) {
		explorer := &mockExplorer{outcome: etherscan.ResultFailed, err: &etherscan.VerificationFailedError{GUID: "g", Reason: "Fail - Unable to verify"}}
		led := &mockLedger{}
		svc := NewService(testArtifacts(), chain, explorer, led, discardLogger())

		result, err := svc.Verify(context.Background(), baseRequest())
		assert.ErrorIs(t, err, ErrExplorer)
		require.NotNil(t, result)
		assert.False(t, result.Verified)
		assert.Equal(t, 0, led.calls)
	})
}

func TestVerify_FullFlow(t *testing.T) {
	chain := &mockChain{result: &chains.VerifyResult{Match: true, MatchType: "partial"}}
	explorer := &mockExplorer{outcome: etherscan.ResultVerified}
	led := &mockLedger{}
	svc := NewService(testArtifacts(), chain, explorer, led, discardLogger())

	req := baseRequest()
	req.ConstructorArgs = "00ff"
	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Equal(t, "partial", result.MatchType)
	assert.Equal(t, "verified", result.Explorer)
	assert.Equal(t, []string{ExplorerName}, result.VerifiedOn)

	assert.Equal(t, "contracts/DecentralizedVideoPlatform.sol:DecentralizedVideoPlatform", explorer.req.ContractName)
	assert.Equal(t, "0.8.0+commit.c7dfd78e", explorer.req.CompilerVersion)
	assert.Equal(t, "00ff", explorer.req.ConstructorArgs)

	assert.Equal(t, 1, led.calls)
	assert.Equal(t, "11155111", led.chainID)
	assert.Equal(t, testAddress, led.address)
}

func TestVerify_WithoutRPC(t *testing.T) {
	chain := &mockChain{}
	explorer := &mockExplorer{outcome: etherscan.ResultAlreadyVerified}
	svc := NewService(testArtifacts(), chain, explorer, nil, discardLogger())

	req := baseRequest()
	req.RPC = ""
	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, chain.calls)
	assert.Equal(t, "skipped", result.MatchType)
	assert.True(t, result.Verified)
	assert.Equal(t, "already_verified", result.Explorer)
}

func TestVerify_SkipExplorer(t *testing.T) {
	chain := &mockChain{result: &chains.VerifyResult{Match: true, MatchType: "full"}}
	explorer := &mockExplorer{}
	led := &mockLedger{}
	svc := NewService(testArtifacts(), chain, explorer, led, discardLogger())

	req := baseRequest()
	req.SkipExplorer = true
	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, 0, explorer.calls)
	assert.Equal(t, 1, led.calls)
	assert.Empty(t, led.verifiedOn)
}

func TestVerify_ExplorerFailure(t *testing.T) {
	chain := &mockChain{result: &chains.VerifyResult{Match: true, MatchType: "full"}}
	explorer := &mockExplorer{outcome: etherscan.ResultFailed, err: &etherscan.VerificationFailedError{GUID: "g", Reason: "Fail - Unable to verify"}}
	led := &mockLedger{}
	svc := NewService(testArtifacts(), chain, explorer, led, discardLogger())

	result, err := svc.Verify(context.Background(), baseRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExplorer)
	require.NotNil(t, result)
	assert.Equal(t, "failed", result.Explorer)
	assert.Equal(t, 0, led.calls)
}

func TestVerify_ComparisonError(t *testing.T) {
	chain := &mockChain{err: errors.New("connection refused")}
	svc := NewService(testArtifacts(), chain, nil, nil, discardLogger())

	_, err := svc.Verify(context.Background(), baseRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestVerify_LedgerMissIsNotAnError(t *testing.T) {
	chain := &mockChain{result: &chains.VerifyResult{Match: true, MatchType: "full"}}
	led := &mockLedger{err: ledger.ErrNotFound}
	svc := NewService(testArtifacts(), chain, nil, led, discardLogger())

	result, err := svc.Verify(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, 1, led.calls)
}
