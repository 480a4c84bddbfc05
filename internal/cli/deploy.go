package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/btube/btube-deploy/internal/chains"
	"github.com/btube/btube-deploy/internal/chains/evm"
	"github.com/btube/btube-deploy/internal/config"
	deploymentsDomain "github.com/btube/btube-deploy/internal/deployments/domain"
	"github.com/btube/btube-deploy/internal/deployer"
	"github.com/btube/btube-deploy/internal/manifest"
	"github.com/btube/btube-deploy/internal/observability/metrics"
	"github.com/btube/btube-deploy/internal/validation"
)

type deployOptions struct {
	network     string
	contract    string
	timeout     time.Duration
	gasLimit    uint64
	promptKey   bool
	noRecord    bool
	manifest    bool
	verify      bool
	verifyDelay time.Duration
}

func createDeployCmd(a *app) *cobra.Command {
	var opts deployOptions

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the contract and print its address",
		Long: `Deploy a contract from its compiled artifact, wait for the creation
transaction to be mined and print the address:

  DecentralizedVideoPlatform deployed to: 0x...

Each run creates a new contract. Nothing is retried: any failure exits 1.

EXAMPLES:
  # Deploy to the default network (sepolia)
  btube-deploy deploy

  # Deploy to goerli and keep a manifest under deployments/goerli
  btube-deploy deploy --network goerli --manifest

  # Deploy and publish the source on Etherscan
  btube-deploy deploy --verify
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			network := opts.network
			if network == "" {
				network = a.cfg.DefaultNetwork
			}

			err := runDeploy(cmd.Context(), a, opts)

			status := metrics.StatusSuccess
			if err != nil {
				status = metrics.StatusError
			}
			metrics.Deploy(network, status)
			a.pushMetrics(cmd.Context(), "deploy")

			if err != nil {
				a.logger.Error("deployment failed", "network", network, "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.network, "network", "n", "", "network to deploy to (default: DEFAULT_NETWORK or sepolia)")
	cmd.Flags().StringVarP(&opts.contract, "contract", "c", "", "contract name (default: "+config.DefaultContract+")")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "bound on submit + confirmation (default: DEPLOY_TIMEOUT_SECONDS)")
	cmd.Flags().Uint64Var(&opts.gasLimit, "gas-limit", 0, "gas limit (default: estimated)")
	cmd.Flags().BoolVar(&opts.promptKey, "prompt-key", false, "ask for the private key when PRIVATE_KEY is unset")
	cmd.Flags().BoolVar(&opts.noRecord, "no-record", false, "do not record the deployment in the ledger")
	cmd.Flags().BoolVar(&opts.manifest, "manifest", false, "write deployments/<network>/<contract>.yaml")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "verify the source on Etherscan after deploying")
	cmd.Flags().DurationVar(&opts.verifyDelay, "verify-delay", 30*time.Second, "wait before verifying so the explorer can index the contract")

	return cmd
}

func runDeploy(ctx context.Context, a *app, opts deployOptions) error {
	net, err := a.cfg.Network(opts.network)
	if err != nil {
		return err
	}

	contract := opts.contract
	if contract == "" {
		contract = a.cfg.Contract
	}
	if err := validation.ValidateContractName(contract); err != nil {
		return err
	}

	if net.SigningKey() == "" && opts.promptKey {
		key, err := a.readSecret(fmt.Sprintf("Private key for %s: ", net.Name))
		if err != nil {
			return err
		}
		net = net.WithSigningKey(key)
	}
	if err := net.ValidateForDeploy(); err != nil {
		return err
	}
	if opts.verify {
		if err := a.cfg.ValidateForVerify(net); err != nil {
			return err
		}
	}

	signer, err := deployer.ParseSigner(net.SigningKey())
	if err != nil {
		return err
	}

	artifact, factory, err := a.contractFactory(contract)
	if err != nil {
		return err
	}

	a.logger.Info("deploying",
		"contract", contract,
		"network", net.Name,
		"rpc", net.MaskedURL(),
		"from", signer.Address.Hex(),
		"artifact", artifact.Path,
	)

	d, closeFn, err := a.dial(ctx, net.URL, net.ChainID, signer, a.logger)
	if err != nil {
		return err
	}
	defer closeFn()
	d.GasLimit = opts.gasLimit

	timeout := opts.timeout
	if timeout == 0 {
		timeout = time.Duration(a.cfg.Deploy.TimeoutSeconds) * time.Second
	}

	start := time.Now()
	dep, err := d.Deploy(ctx, factory, timeout)
	if err != nil {
		return err
	}
	metrics.DeployDuration(net.Name, time.Since(start))

	fmt.Fprintf(a.stdout, "%s deployed to: %s\n", contract, dep.Address.Hex())

	// The contract exists from here on; bookkeeping failures only warn.
	if !opts.noRecord {
		a.recordDeployment(ctx, net, dep, artifact)
	}
	if opts.manifest {
		a.writeManifest(net, dep, artifact)
	}
	if opts.verify {
		a.verifyAfterDeploy(ctx, net, contract, dep.Address.Hex(), opts.verifyDelay)
	}

	return nil
}

// contractFactory finds the compiled artifact and turns it into a factory
func (a *app) contractFactory(contract string) (*chains.Artifact, *deployer.ContractFactory, error) {
	chain := evm.NewChain(a.cfg.Artifacts.ArtifactsDir)
	builder, err := chain.ResolveBuilder(a.projectDir, a.cfg.Artifacts.Builder)
	if err != nil {
		return nil, nil, err
	}

	artifact, err := builder.FindArtifact(a.projectDir, contract)
	if err != nil {
		return nil, nil, err
	}
	if err := evm.CheckCompilerVersion(a.cfg.Solidity, artifact.EVM.Compiler.Version); err != nil {
		return nil, nil, err
	}

	factory, err := deployer.NewContractFactory(artifact)
	if err != nil {
		return nil, nil, err
	}
	return artifact, factory, nil
}

func (a *app) recordDeployment(ctx context.Context, net config.Network, dep *deployer.Deployment, artifact *chains.Artifact) {
	store, err := a.openLedger(ctx)
	if err != nil {
		metrics.DeploymentRecord(metrics.StatusError)
		a.logger.Warn("deployment not recorded", "error", err)
		return
	}
	defer store.Close()

	svc := deploymentsDomain.LoggingMiddleware(a.logger)(deploymentsDomain.NewService(store))
	_, err = svc.Record(ctx, deploymentsDomain.RecordRequest{
		Contract:        dep.Contract,
		Network:         net.Name,
		ChainID:         dep.ChainID.Int64(),
		Address:         dep.Address.Hex(),
		TxHash:          dep.TxHash.Hex(),
		DeployerAddress: dep.Deployer.Hex(),
		BlockNumber:     int64(dep.BlockNumber),
		GasUsed:         dep.GasUsed,
		ArtifactPath:    artifact.Path,
		CompilerVersion: artifact.EVM.Compiler.Version,
	})
	if err != nil {
		metrics.DeploymentRecord(metrics.StatusError)
		a.logger.Warn("deployment not recorded", "error", err)
		return
	}
	metrics.DeploymentRecord(metrics.StatusSuccess)
}

func (a *app) writeManifest(net config.Network, dep *deployer.Deployment, artifact *chains.Artifact) {
	artifactPath := artifact.Path
	if rel, err := filepath.Rel(a.projectDir, artifact.Path); err == nil {
		artifactPath = rel
	}

	path, err := manifest.Write(a.manifestDir(), &manifest.Manifest{
		Contract:    dep.Contract,
		Network:     net.Name,
		ChainID:     dep.ChainID.Int64(),
		Address:     dep.Address.Hex(),
		TxHash:      dep.TxHash.Hex(),
		BlockNumber: dep.BlockNumber,
		Deployer:    dep.Deployer.Hex(),
		GasUsed:     dep.GasUsed,
		Artifact:    artifactPath,
		Compiler:    artifact.EVM.Compiler.Version,
		DeployedAt:  time.Now().UTC().Truncate(time.Second),

		ExplorerLink: net.AddressLink(dep.Address.Hex()),
	})
	if err != nil {
		a.logger.Warn("manifest not written", "error", err)
		return
	}
	a.logger.Info("manifest written", "path", path)
}

func (a *app) manifestDir() string {
	if filepath.IsAbs(a.cfg.Deploy.ManifestDir) {
		return a.cfg.Deploy.ManifestDir
	}
	return filepath.Join(a.projectDir, a.cfg.Deploy.ManifestDir)
}

func (a *app) verifyAfterDeploy(ctx context.Context, net config.Network, contract, address string, delay time.Duration) {
	if delay > 0 {
		a.logger.Info("waiting before verification", "delay", delay)
		select {
		case <-ctx.Done():
			a.logger.Warn("verification skipped", "error", ctx.Err())
			return
		case <-time.After(delay):
		}
	}

	result, err := runVerify(ctx, a, verifyOptions{network: net.Name, address: address, contract: contract})
	if err != nil {
		a.logger.Warn("verification failed, retry with the verify command", "address", address, "error", err)
		return
	}
	a.logger.Info("verification finished", "verified", result.Verified, "explorer", result.Explorer)
}
