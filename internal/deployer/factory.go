package deployer

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/btube/btube-deploy/internal/chains"
	"github.com/btube/btube-deploy/internal/chains/evm"
)

// ContractFactory holds what is needed to create one contract: its
// interface description and creation bytecode
type ContractFactory struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
	Artifact *chains.Artifact
}

// NewContractFactory builds a factory from a compiled artifact. Unlinked
// library placeholders are rejected.
func NewContractFactory(a *chains.Artifact) (*ContractFactory, error) {
	if a == nil || a.EVM == nil {
		return nil, fmt.Errorf("artifact has no EVM data")
	}

	abiJSON := a.EVM.ABI
	if len(abiJSON) == 0 {
		abiJSON = []byte("[]")
	}
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing ABI for %s: %w", a.Name, err)
	}

	bytecode, err := evm.DecodeHex(a.EVM.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name, err)
	}
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("%s: %w", a.Name, chains.ErrNoBytecode)
	}

	return &ContractFactory{
		Name:     a.Name,
		ABI:      parsed,
		Bytecode: bytecode,
		Artifact: a,
	}, nil
}
