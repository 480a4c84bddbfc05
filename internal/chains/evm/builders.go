package evm

import (
	"github.com/btube/btube-deploy/internal/chains"
	"github.com/btube/btube-deploy/internal/chains/evm/foundry"
	"github.com/btube/btube-deploy/internal/chains/evm/hardhat"
)

// NewFoundryBuilder creates a Foundry builder reading from outDir ("" for out/)
func NewFoundryBuilder(outDir string) chains.Builder {
	return foundry.New(outDir)
}

// NewHardhatBuilder creates a Hardhat builder reading from artifactsDir ("" for artifacts/)
func NewHardhatBuilder(artifactsDir string) chains.Builder {
	return hardhat.New(artifactsDir)
}
