package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func addRunCommand(parent *cobra.Command, newClient clientFunc) {
	var (
		input    string
		async    bool
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run NAME",
		Short: "Invoke an action",
		Long: `Invoke an action and print its response.

With --async the action runs in the background on the server and the run ID
is printed instead; add --wait to poll the run until it finishes.

Examples:
  opsctl run describe_kafka_topic --input '{"topic_name":"orders"}'
  opsctl run list_kafka_topics --async
  opsctl run get_lag_of_kafka_consumer_group --input '{"consumer_group_name":"billing"}' --async --wait`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body json.RawMessage
			if input != "" {
				if !json.Valid([]byte(input)) {
					return fmt.Errorf("%w: --input must be valid JSON", ErrUsage)
				}
				body = json.RawMessage(input)
			}
			if wait && !async {
				return fmt.Errorf("%w: --wait requires --async", ErrUsage)
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !async {
				resp, err := c.Invoke(cmd.Context(), args[0], body)
				if err != nil {
					return err
				}
				return printJSON(out, resp)
			}

			run, err := c.StartRun(cmd.Context(), args[0], body)
			if err != nil {
				return err
			}
			if !wait {
				fmt.Fprintln(out, run.ID)
				return nil
			}

			run, err = c.WaitForRun(cmd.Context(), run.ID, interval)
			if err != nil {
				return err
			}
			return printJSON(out, run)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "action request as a JSON object")
	cmd.Flags().BoolVar(&async, "async", false, "start a background run and print its ID")
	cmd.Flags().BoolVar(&wait, "wait", false, "with --async, poll the run until it finishes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval for --wait")
	parent.AddCommand(cmd)
}
