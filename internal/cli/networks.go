package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func createNetworksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List configured networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCHAIN ID\tURL\tEXPLORER\tSIGNER")
			for _, name := range a.cfg.NetworkNames() {
				n := a.cfg.Networks[name]
				if name == a.cfg.DefaultNetwork {
					name += " (default)"
				}
				signer := "no"
				if n.SigningKey() != "" {
					signer = "yes"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", name, n.ChainID, n.MaskedURL(), n.ExplorerAPI, signer)
			}
			return w.Flush()
		},
	}
}
