package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	deploymentsDomain "github.com/btube/btube-deploy/internal/deployments/domain"
	"github.com/btube/btube-deploy/pkg/client"
)

type deploymentsOptions struct {
	server   string
	network  string
	chainID  string
	contract string
	verified *bool
	limit    int
	cursor   string
	json     bool
}

func createDeploymentsCmd(a *app) *cobra.Command {
	var opts deploymentsOptions

	cmd := &cobra.Command{
		Use:     "deployments",
		Aliases: []string{"deployment"},
		Short:   "Query the deployment ledger",
		Long: `Query recorded deployments, from the local store or from a server
started with 'btube-deploy serve' (--server or BTUBE_SERVER).`,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "ledger server URL (default: BTUBE_SERVER, or the local store)")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "output as JSON")

	cmd.AddCommand(createDeploymentsListCmd(a, &opts))
	cmd.AddCommand(createDeploymentsInfoCmd(a, &opts))

	return cmd
}

func createDeploymentsListCmd(a *app, opts *deploymentsOptions) *cobra.Command {
	var verifiedFlag bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deployments",
		Long: `List recorded deployments, newest first.

EXAMPLES:
  btube-deploy deployments list
  btube-deploy deployments list --network sepolia --verified
  btube-deploy deployments list --server http://ledger:8080 --json
`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("verified") {
				opts.verified = &verifiedFlag
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := listDeployments(cmd.Context(), a, opts)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSONOut(a, resp)
			}
			if len(resp.Data) == 0 {
				fmt.Fprintln(a.stdout, "No deployments found")
				return nil
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NETWORK\tCHAIN ID\tADDRESS\tCONTRACT\tVERIFIED\tCREATED")
			for _, d := range resp.Data {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
					d.Network, d.ChainID, d.Address, d.ContractName, d.Verified, d.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if resp.Pagination.HasMore {
				fmt.Fprintf(a.stdout, "\nMore results: --cursor %s\n", resp.Pagination.NextCursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.network, "network", "n", "", "filter by network")
	cmd.Flags().StringVar(&opts.chainID, "chain-id", "", "filter by chain ID")
	cmd.Flags().StringVarP(&opts.contract, "contract", "c", "", "filter by contract name")
	cmd.Flags().BoolVar(&verifiedFlag, "verified", false, "filter by verification status")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "number of items to show")
	cmd.Flags().StringVar(&opts.cursor, "cursor", "", "continue a previous listing")

	return cmd
}

func createDeploymentsInfoCmd(a *app, opts *deploymentsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <address>",
		Short: "Show one deployment",
		Long: `Show one deployment. The chain is taken from --chain-id, or from
--network when no chain id is given.

EXAMPLES:
  btube-deploy deployments info 0x1234... --network goerli
  btube-deploy deployments info 0x1234... --chain-id 11155111
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID := opts.chainID
			if chainID == "" {
				net, err := a.cfg.Network(opts.network)
				if err != nil {
					return err
				}
				chainID = strconv.FormatInt(net.ChainID, 10)
			}

			d, err := getDeployment(cmd.Context(), a, opts, chainID, args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSONOut(a, d)
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Contract:\t%s\n", d.ContractName)
			fmt.Fprintf(w, "Address:\t%s\n", d.Address)
			fmt.Fprintf(w, "Network:\t%s (chain %s)\n", d.Network, d.ChainID)
			fmt.Fprintf(w, "Deployer:\t%s\n", d.DeployerAddress)
			fmt.Fprintf(w, "Tx:\t%s\n", d.TxHash)
			fmt.Fprintf(w, "Block:\t%d\n", d.BlockNumber)
			fmt.Fprintf(w, "Verified:\t%t\n", d.Verified)
			if len(d.VerifiedOn) > 0 {
				fmt.Fprintf(w, "Verified on:\t%v\n", d.VerifiedOn)
			}
			fmt.Fprintf(w, "Created:\t%s\n", d.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&opts.network, "network", "n", "", "network of the deployment (default: DEFAULT_NETWORK)")
	cmd.Flags().StringVar(&opts.chainID, "chain-id", "", "chain ID of the deployment")

	return cmd
}

func serverURL(opts *deploymentsOptions) string {
	if opts.server != "" {
		return opts.server
	}
	return os.Getenv("BTUBE_SERVER")
}

func listDeployments(ctx context.Context, a *app, opts *deploymentsOptions) (*client.ListDeploymentsResponse, error) {
	if url := serverURL(opts); url != "" {
		return client.New(url).ListDeployments(ctx, client.ListOptions{
			Network:  opts.network,
			ChainID:  opts.chainID,
			Contract: opts.contract,
			Verified: opts.verified,
			Limit:    opts.limit,
			Cursor:   opts.cursor,
		})
	}

	store, err := a.openLedger(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	result, err := deploymentsDomain.NewService(store).List(ctx, deploymentsDomain.ListFilter{
		Network:  opts.network,
		ChainID:  opts.chainID,
		Contract: opts.contract,
		Verified: opts.verified,
	}, deploymentsDomain.PaginationParams{
		Limit:  opts.limit,
		Cursor: opts.cursor,
	})
	if err != nil {
		return nil, err
	}

	resp := &client.ListDeploymentsResponse{
		Data: make([]client.Deployment, len(result.Deployments)),
		Pagination: client.Pagination{
			Limit:      opts.limit,
			HasMore:    result.HasMore,
			NextCursor: result.NextCursor,
		},
	}
	for i := range result.Deployments {
		resp.Data[i] = toClientDeployment(&result.Deployments[i])
	}
	return resp, nil
}

func getDeployment(ctx context.Context, a *app, opts *deploymentsOptions, chainID, address string) (*client.Deployment, error) {
	if url := serverURL(opts); url != "" {
		d, err := client.New(url).GetDeployment(ctx, chainID, address)
		if client.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s on chain %s", deploymentsDomain.ErrNotFound, address, chainID)
		}
		return d, err
	}

	store, err := a.openLedger(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	d, err := deploymentsDomain.NewService(store).Get(ctx, chainID, address)
	if err != nil {
		if errors.Is(err, deploymentsDomain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s on chain %s", err, address, chainID)
		}
		return nil, err
	}
	out := toClientDeployment(d)
	return &out, nil
}

func toClientDeployment(d *deploymentsDomain.Deployment) client.Deployment {
	return client.Deployment{
		ID:              d.ID,
		ContractName:    d.ContractName,
		Network:         d.Network,
		ChainID:         d.ChainID,
		Address:         d.Address,
		DeployerAddress: d.DeployerAddress,
		TxHash:          d.TxHash,
		BlockNumber:     d.BlockNumber,
		Data:            d.DeploymentData,
		Verified:        d.Verified,
		VerifiedAt:      d.VerifiedAt,
		VerifiedOn:      d.VerifiedOn,
		CreatedAt:       d.CreatedAt,
	}
}

func writeJSONOut(a *app, v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
