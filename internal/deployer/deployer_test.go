package deployer

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btube/btube-deploy/internal/chains"
)

// init code that returns a single STOP byte as runtime code
const storeStopBytecode = "0x6001600c60003960016000f300"

// init code that reverts immediately
const revertBytecode = "0x60006000fd"

// init code that returns no runtime code
const emptyRuntimeBytecode = "0x00"

type testChain struct {
	backend *simulated.Backend
	signer  *Signer
}

func newTestChain(t *testing.T, fund bool) *testChain {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewSigner(key)

	alloc := types.GenesisAlloc{}
	if fund {
		alloc[signer.Address] = types.Account{Balance: new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))}
	}
	backend := simulated.NewBackend(alloc)
	t.Cleanup(func() { _ = backend.Close() })

	return &testChain{backend: backend, signer: signer}
}

func (c *testChain) deployer(t *testing.T) *Deployer {
	t.Helper()
	chainID, err := c.backend.Client().ChainID(context.Background())
	require.NoError(t, err)
	return New(c.backend.Client(), c.signer, chainID, nil)
}

// mineUntilDone commits blocks until ctx is cancelled
func (c *testChain) mineUntilDone(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.backend.Commit()
		}
	}
}

func factory(t *testing.T, bytecode string) *ContractFactory {
	t.Helper()
	f, err := NewContractFactory(&chains.Artifact{
		Name:  "DecentralizedVideoPlatform",
		Chain: "evm",
		EVM: &chains.EVMArtifact{
			ABI:      json.RawMessage(`[]`),
			Bytecode: bytecode,
		},
	})
	require.NoError(t, err)
	return f
}

func TestNewContractFactory(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		f := factory(t, storeStopBytecode)
		assert.Equal(t, "DecentralizedVideoPlatform", f.Name)
		assert.Len(t, f.Bytecode, 13)
	})

	t.Run("no bytecode", func(t *testing.T) {
		_, err := NewContractFactory(&chains.Artifact{Name: "IVideo", EVM: &chains.EVMArtifact{Bytecode: "0x"}})
		assert.ErrorIs(t, err, chains.ErrNoBytecode)
	})

	t.Run("unlinked library", func(t *testing.T) {
		_, err := NewContractFactory(&chains.Artifact{Name: "X", EVM: &chains.EVMArtifact{
			Bytecode: "0x73__$1234567890abcdef1234567890abcdef12$__00",
		}})
		assert.ErrorContains(t, err, "unlinked")
	})

	t.Run("bad abi", func(t *testing.T) {
		_, err := NewContractFactory(&chains.Artifact{Name: "X", EVM: &chains.EVMArtifact{
			ABI:      json.RawMessage(`{`),
			Bytecode: "0x00",
		}})
		assert.Error(t, err)
	})
}

func TestParseSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := common.Bytes2Hex(crypto.FromECDSA(key))
	want := crypto.PubkeyToAddress(key.PublicKey)

	s, err := ParseSigner(hexKey)
	require.NoError(t, err)
	assert.Equal(t, want, s.Address)

	s, err = ParseSigner("0x" + hexKey)
	require.NoError(t, err)
	assert.Equal(t, want, s.Address)

	for _, bad := range []string{"", "0x", "not-hex", "0x1234"} {
		_, err := ParseSigner(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestDeployer_SubmitAndWait(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, true)
	d := chain.deployer(t)

	pending, err := d.Submit(ctx, factory(t, storeStopBytecode))
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(chain.signer.Address, 0), pending.Address)

	chain.backend.Commit()

	dep, err := d.Wait(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, pending.Address, dep.Address)
	assert.Equal(t, pending.Tx.Hash(), dep.TxHash)
	assert.Equal(t, chain.signer.Address, dep.Deployer)
	assert.Equal(t, uint64(1), dep.BlockNumber)
	assert.NotZero(t, dep.GasUsed)

	code, err := chain.backend.Client().CodeAt(ctx, dep.Address, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, code)
}

func TestDeployer_Deploy(t *testing.T) {
	chain := newTestChain(t, true)
	d := chain.deployer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go chain.mineUntilDone(ctx)

	first, err := d.Deploy(ctx, factory(t, storeStopBytecode), 30*time.Second)
	require.NoError(t, err)

	second, err := d.Deploy(ctx, factory(t, storeStopBytecode), 30*time.Second)
	require.NoError(t, err)

	// not idempotent: each run creates a new contract
	assert.NotEqual(t, first.Address, second.Address)
	assert.NotEqual(t, first.TxHash, second.TxHash)
}

func TestDeployer_InsufficientFunds(t *testing.T) {
	chain := newTestChain(t, false)
	d := chain.deployer(t)

	_, err := d.Submit(context.Background(), factory(t, storeStopBytecode))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestDeployer_Reverted(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, true)
	d := chain.deployer(t)
	d.GasLimit = 100_000

	pending, err := d.Submit(ctx, factory(t, revertBytecode))
	require.NoError(t, err)
	chain.backend.Commit()

	_, err = d.Wait(ctx, pending)
	assert.ErrorIs(t, err, ErrReverted)
}

func TestDeployer_NoCode(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, true)
	d := chain.deployer(t)
	d.GasLimit = 100_000

	pending, err := d.Submit(ctx, factory(t, emptyRuntimeBytecode))
	require.NoError(t, err)
	chain.backend.Commit()

	_, err = d.Wait(ctx, pending)
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestDeployer_Timeout(t *testing.T) {
	chain := newTestChain(t, true)
	d := chain.deployer(t)

	// nothing mines, so the deadline expires while waiting
	_, err := d.Deploy(context.Background(), factory(t, storeStopBytecode), 500*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDial_Unreachable(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err = Dial(ctx, "http://127.0.0.1:1", 11155111, NewSigner(key), nil)
	assert.Error(t, err)
}
