package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func addRunsCommand(parent *cobra.Command, newClient clientFunc) {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect asynchronous runs",
	}
	addRunsGetCommand(cmd, newClient)
	addRunsListCommand(cmd, newClient)
	parent.AddCommand(cmd)
}

func addRunsGetCommand(parent *cobra.Command, newClient clientFunc) {
	var (
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show a run and its response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q is not a run ID", ErrUsage, args[0])
			}
			c, err := newClient()
			if err != nil {
				return err
			}

			if wait {
				run, err := c.WaitForRun(cmd.Context(), id, interval)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), run)
			}

			run, err := c.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), run)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the run finishes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval for --wait")
	parent.AddCommand(cmd)
}

func addRunsListCommand(parent *cobra.Command, newClient clientFunc) {
	var (
		actionName string
		status     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent runs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			q := url.Values{}
			if actionName != "" {
				q.Set("action", actionName)
			}
			if status != "" {
				q.Set("status", status)
			}
			q.Set("limit", strconv.Itoa(limit))

			list, err := c.ListRuns(cmd.Context(), q)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tACTION\tSTATUS\tCREATED")
			for _, run := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", run.ID, run.Action, run.Status, run.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&actionName, "action", "", "only runs of this action")
	cmd.Flags().StringVar(&status, "status", "", "only runs in this status (pending, running, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (1-100)")
	parent.AddCommand(cmd)
}
