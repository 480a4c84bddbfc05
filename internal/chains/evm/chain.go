// Package evm provides the EVM chain module for Ethereum and compatible chains.
package evm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"

	"github.com/btube/btube-deploy/internal/chains"
)

var _ chains.Chain = (*Chain)(nil)

// Chain implements the chains.Chain interface for EVM-compatible blockchains
type Chain struct {
	builders []chains.Builder
}

// NewChain creates a new EVM chain module. artifactsDir overrides each
// builder's default output directory when set.
func NewChain(artifactsDir string) *Chain {
	return &Chain{
		builders: []chains.Builder{
			NewHardhatBuilder(artifactsDir),
			NewFoundryBuilder(artifactsDir),
		},
	}
}

// Name returns the chain identifier
func (c *Chain) Name() string {
	return "evm"
}

// DisplayName returns a human-readable name
func (c *Chain) DisplayName() string {
	return "Ethereum/EVM"
}

// Builders returns all available builders for this chain
func (c *Chain) Builders() []chains.Builder {
	return c.builders
}

// Builder returns the builder registered under name
func (c *Chain) Builder(name string) (chains.Builder, error) {
	for _, b := range c.builders {
		if b.Name() == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unknown builder %q (supported: %s)", name, strings.Join(c.builderNames(), ", "))
}

// DetectBuilder detects which builder is used in the given directory
func (c *Chain) DetectBuilder(dir string) (chains.Builder, error) {
	for _, b := range c.builders {
		detected, err := b.Detect(dir)
		if err != nil {
			continue
		}
		if detected {
			return b, nil
		}
	}
	files := make([]string, 0, len(c.builders))
	for _, b := range c.Builders() {
		files = append(files, b.ConfigFile())
	}
	return nil, fmt.Errorf("%w in %s (expected %s)", chains.ErrNoBuilder, dir, strings.Join(files, " or "))
}

func (c *Chain) builderNames() []string {
	names := make([]string, 0, len(c.builders))
	for _, b := range c.Builders() {
		names = append(names, b.Name())
	}
	return names
}

// ResolveBuilder returns the named builder, or detects one when name is empty
func (c *Chain) ResolveBuilder(dir, name string) (chains.Builder, error) {
	if name != "" {
		return c.Builder(name)
	}
	return c.DetectBuilder(dir)
}

// VerifyDeployment verifies that deployed bytecode matches expected bytecode
func (c *Chain) VerifyDeployment(ctx context.Context, opts chains.VerifyOptions) (*chains.VerifyResult, error) {
	deployed, err := c.GetDeployedBytecode(ctx, opts.RPC, opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get deployed bytecode: %w", err)
	}
	if len(deployed) == 0 {
		return &chains.VerifyResult{
			Match:     false,
			MatchType: "none",
			Message:   "No code at address",
		}, nil
	}

	return CompareBytecode(deployed, opts.ExpectedCode, opts.Libraries), nil
}

// GetDeployedBytecode fetches the runtime code at address with eth_getCode
func (c *Chain) GetDeployedBytecode(ctx context.Context, rpc string, address string) ([]byte, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}

	client, err := w3.Dial(rpc)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", rpc, err)
	}
	defer client.Close()

	var code []byte
	if err := client.CallCtx(ctx, eth.Code(common.HexToAddress(address), nil).Returns(&code)); err != nil {
		return nil, fmt.Errorf("eth_getCode: %w", err)
	}
	return code, nil
}
