package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/btube/btube-deploy/internal/chains/evm"
	deploymentsDomain "github.com/btube/btube-deploy/internal/deployments/domain"
	"github.com/btube/btube-deploy/internal/etherscan"
	"github.com/btube/btube-deploy/internal/manifest"
	"github.com/btube/btube-deploy/internal/observability/metrics"
	verification "github.com/btube/btube-deploy/internal/verification/domain"
)

// ErrNotVerified is returned when the on-chain code does not match the artifact
var ErrNotVerified = errors.New("contract not verified")

type verifyOptions struct {
	network         string
	address         string
	contract        string
	constructorArgs string
	bytecodeOnly    bool
	noCompare       bool
}

func createVerifyCmd(a *app) *cobra.Command {
	var opts verifyOptions

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a deployed contract",
		Long: `Compare the code at an address with the local artifact and publish the
source on Etherscan. A matching deployment is marked verified in the ledger.

Contracts with immutable variables never match the artifact's runtime code.
Without --bytecode-only a mismatch is only a warning and Etherscan decides;
--no-compare skips the comparison altogether.

EXAMPLES:
  btube-deploy verify --network sepolia --address 0x1234...

  # Only compare bytecode, do not contact Etherscan
  btube-deploy verify --address 0x1234... --bytecode-only
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runVerify(cmd.Context(), a, opts)
			a.pushMetrics(cmd.Context(), "verify")
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "%s verified: bytecode %s", result.Address, result.MatchType)
			if result.Explorer != "" {
				fmt.Fprintf(a.stdout, ", etherscan %s", result.Explorer)
			}
			fmt.Fprintln(a.stdout)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.network, "network", "n", "", "network the contract lives on (default: DEFAULT_NETWORK)")
	cmd.Flags().StringVar(&opts.address, "address", "", "contract address (required)")
	cmd.Flags().StringVarP(&opts.contract, "contract", "c", "", "contract name (default: CONTRACT_NAME)")
	cmd.Flags().StringVar(&opts.constructorArgs, "constructor-args", "", "ABI-encoded constructor arguments, hex")
	cmd.Flags().BoolVar(&opts.bytecodeOnly, "bytecode-only", false, "skip Etherscan")
	cmd.Flags().BoolVar(&opts.noCompare, "no-compare", false, "skip the local bytecode comparison")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}

func runVerify(ctx context.Context, a *app, opts verifyOptions) (*verification.VerifyResult, error) {
	net, err := a.cfg.Network(opts.network)
	if err != nil {
		return nil, err
	}
	if !opts.bytecodeOnly {
		if err := a.cfg.ValidateForVerify(net); err != nil {
			return nil, err
		}
	}

	contract := opts.contract
	if contract == "" {
		contract = a.cfg.Contract
	}

	chain := evm.NewChain(a.cfg.Artifacts.ArtifactsDir)
	builder, err := chain.ResolveBuilder(a.projectDir, a.cfg.Artifacts.Builder)
	if err != nil {
		return nil, err
	}

	// nil interfaces, not typed nils, when a collaborator is absent
	var explorer verification.Explorer
	if !opts.bytecodeOnly {
		explorer = etherscan.New(net.ExplorerAPI, a.cfg.Etherscan.APIKey,
			etherscan.WithChainID(net.ChainID),
			etherscan.WithRateLimit(a.cfg.Etherscan.RequestsPerSec),
			etherscan.WithPollInterval(time.Duration(a.cfg.Etherscan.PollSeconds)*time.Second),
			etherscan.WithLogger(a.logger),
		)
	}

	var ledger verification.Ledger
	if store, err := a.openLedger(ctx); err != nil {
		a.logger.Warn("ledger unavailable", "error", err)
	} else {
		defer store.Close()
		ledger = deploymentsDomain.NewService(store)
	}

	rpc := net.URL
	switch {
	case opts.noCompare:
		rpc = ""
	case strings.HasSuffix(rpc, "/v3/"):
		a.logger.Warn("INFURA_API_KEY not set, skipping bytecode comparison", "network", net.Name)
		rpc = ""
	}

	svc := verification.NewService(builder, chain, explorer, ledger, a.logger)
	result, err := svc.Verify(ctx, verification.VerifyRequest{
		Network:         net.Name,
		ChainID:         net.ChainID,
		Address:         opts.address,
		Contract:        contract,
		ProjectDir:      a.projectDir,
		RPC:             rpc,
		ConstructorArgs: strings.TrimPrefix(opts.constructorArgs, "0x"),
		SkipExplorer:    opts.bytecodeOnly,
	})
	if err != nil {
		metrics.Verify(net.Name, string(etherscan.ResultFailed))
		return nil, err
	}
	if !result.Verified {
		metrics.Verify(net.Name, string(etherscan.ResultFailed))
		return result, fmt.Errorf("%w: %s", ErrNotVerified, result.Message)
	}

	label := result.Explorer
	if label == "" {
		label = "bytecode_" + result.MatchType
	}
	metrics.Verify(net.Name, label)

	if err := manifest.MarkVerified(a.manifestDir(), net.Name, contract, result.Address); err != nil {
		a.logger.Warn("manifest not updated", "error", err)
	}

	return result, nil
}
