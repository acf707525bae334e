// Package cli provides the opsctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Server is the base URL of the kafkaops API.
	Server string
	// Token is the bearer API key.
	Token string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// Verbose enables debug logging to stderr.
	Verbose bool
}

// options holds the collaborators commands use that tests replace.
type options struct {
	openKeyStore openKeyStoreFunc
}

func defaultOptions() options {
	return options{openKeyStore: openPostgresKeyStore}
}

// newRootCmd creates the root command. Flags fall back to KAFKAOPS_*
// environment variables through viper.
func newRootCmd(flags *GlobalFlags, info BuildInfo, opts options) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("KAFKAOPS")
	v.AutomaticEnv()

	var logger *slog.Logger

	cmd := &cobra.Command{
		Use:   "opsctl",
		Short: "Operate the kafkaops action server",
		Long: `opsctl lists and invokes kafkaops actions, follows asynchronous runs,
and bootstraps API keys directly against the database.

The server URL and API key are read from --server and --token, or from the
KAFKAOPS_SERVER and KAFKAOPS_TOKEN environment variables.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rootFlags := cmd.Root().PersistentFlags()
			for _, name := range []string{"server", "token", "timeout", "verbose"} {
				if err := v.BindPFlag(name, rootFlags.Lookup(name)); err != nil {
					return fmt.Errorf("failed to bind flags: %w", err)
				}
			}
			flags.Server = v.GetString("server")
			flags.Token = v.GetString("token")
			flags.Timeout = v.GetDuration("timeout")
			flags.Verbose = v.GetBool("verbose")

			logger = newLogger(cmd.ErrOrStderr(), flags.Verbose)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.Server, "server", "http://localhost:8080", "kafkaops API base URL")
	cmd.PersistentFlags().StringVar(&flags.Token, "token", "", "API key sent as a bearer token")
	cmd.PersistentFlags().DurationVar(&flags.Timeout, "timeout", 6*time.Minute, "per-request timeout")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")

	apiClient := func() (*Client, error) {
		if flags.Server == "" {
			return nil, fmt.Errorf("%w: --server or KAFKAOPS_SERVER is required", ErrUsage)
		}
		return NewClient(flags.Server, flags.Token, flags.Timeout, logger), nil
	}

	addActionsCommand(cmd, apiClient)
	addRunCommand(cmd, apiClient)
	addRunsCommand(cmd, apiClient)
	addKeysCommand(cmd, v, opts.openKeyStore)

	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, info, defaultOptions())
	return cmd.ExecuteContext(ctx)
}
