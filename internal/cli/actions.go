package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type clientFunc func() (*Client, error)

func addActionsCommand(parent *cobra.Command, newClient clientFunc) {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the actions the server exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			infos, err := c.ListActions(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDESCRIPTION")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\n", info.Name, info.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalogue as JSON")
	parent.AddCommand(cmd)
}
