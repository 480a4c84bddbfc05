// Package deployer submits contract-creation transactions and waits for them
// to be mined.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Common deployment errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrReverted          = errors.New("contract creation reverted")
	ErrNoCode            = errors.New("no code at deployed address")
	ErrChainIDMismatch   = errors.New("chain id mismatch")
)

// Backend is the chain access a deployment needs. *ethclient.Client and the
// simulated backend's client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// PendingDeployment is a submitted, not yet confirmed, creation transaction
type PendingDeployment struct {
	Contract string
	Address  common.Address
	Tx       *types.Transaction
}

// Deployment is a confirmed contract creation
type Deployment struct {
	Contract    string
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	Deployer    common.Address
	GasUsed     uint64
	ChainID     *big.Int
}

// Deployer creates contracts on a single chain with a single signer
type Deployer struct {
	backend Backend
	signer  *Signer
	chainID *big.Int
	logger  *slog.Logger

	// GasLimit overrides gas estimation when non-zero
	GasLimit uint64
}

// New creates a deployer over an existing backend
func New(backend Backend, signer *Signer, chainID *big.Int, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{
		backend: backend,
		signer:  signer,
		chainID: chainID,
		logger:  logger,
	}
}

// Dial connects to rpcURL and returns a deployer for it. When expectedChainID
// is non-zero the remote chain id must match.
func Dial(ctx context.Context, rpcURL string, expectedChainID int64, signer *Signer, logger *slog.Logger) (*Deployer, func(), error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to network: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("querying chain id: %w", err)
	}
	if expectedChainID != 0 && chainID.Int64() != expectedChainID {
		client.Close()
		return nil, nil, fmt.Errorf("%w: endpoint reports %s, network configured as %d", ErrChainIDMismatch, chainID, expectedChainID)
	}

	return New(client, signer, chainID, logger), client.Close, nil
}

// ChainID returns the chain the deployer signs for
func (d *Deployer) ChainID() *big.Int {
	return new(big.Int).Set(d.chainID)
}

// Submit sends the creation transaction for factory with constructor args
func (d *Deployer) Submit(ctx context.Context, factory *ContractFactory, args ...any) (*PendingDeployment, error) {
	balance, err := d.backend.BalanceAt(ctx, d.signer.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("querying balance of %s: %w", d.signer.Address.Hex(), err)
	}
	if balance.Sign() == 0 {
		return nil, fmt.Errorf("%w: account %s has zero balance", ErrInsufficientFunds, d.signer.Address.Hex())
	}

	opts, err := d.signer.TransactOpts(d.chainID)
	if err != nil {
		return nil, fmt.Errorf("creating transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = d.GasLimit

	address, tx, _, err := bind.DeployContract(opts, factory.ABI, factory.Bytecode, d.backend, args...)
	if err != nil {
		return nil, fmt.Errorf("sending deployment transaction: %w", err)
	}

	d.logger.Info("deployment transaction sent",
		"contract", factory.Name,
		"tx", tx.Hash().Hex(),
		"address", address.Hex(),
		"from", d.signer.Address.Hex(),
		"nonce", tx.Nonce(),
		"gas", tx.Gas(),
	)

	return &PendingDeployment{Contract: factory.Name, Address: address, Tx: tx}, nil
}

// Wait blocks until the creation transaction is mined and code exists at the
// predicted address
func (d *Deployer) Wait(ctx context.Context, pending *PendingDeployment) (*Deployment, error) {
	receipt, err := bind.WaitMined(ctx, d.backend, pending.Tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", pending.Tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s in block %d", ErrReverted, pending.Tx.Hash().Hex(), receipt.BlockNumber.Uint64())
	}

	address := pending.Address
	if receipt.ContractAddress != (common.Address{}) {
		address = receipt.ContractAddress
	}

	code, err := d.backend.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("reading code at %s: %w", address.Hex(), err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCode, address.Hex())
	}

	dep := &Deployment{
		Contract:    pending.Contract,
		Address:     address,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Deployer:    d.signer.Address,
		GasUsed:     receipt.GasUsed,
		ChainID:     d.ChainID(),
	}

	d.logger.Info("deployment confirmed",
		"contract", dep.Contract,
		"address", dep.Address.Hex(),
		"block", dep.BlockNumber,
		"gas_used", dep.GasUsed,
	)

	return dep, nil
}

// Deploy submits and confirms a contract. A non-zero timeout bounds the whole
// operation. There is no retry.
func (d *Deployer) Deploy(ctx context.Context, factory *ContractFactory, timeout time.Duration, args ...any) (*Deployment, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	pending, err := d.Submit(ctx, factory, args...)
	if err != nil {
		return nil, err
	}
	return d.Wait(ctx, pending)
}
