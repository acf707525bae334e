package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/kafkaops/internal/apikey"
	"github.com/kiranshivaraju/kafkaops/internal/config"
	"github.com/kiranshivaraju/kafkaops/internal/store"
	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

// keyStore is the part of the store keys create needs.
type keyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
}

type openKeyStoreFunc func(ctx context.Context, databaseURL string) (keyStore, func(), error)

func openPostgresKeyStore(ctx context.Context, databaseURL string) (keyStore, func(), error) {
	pool, err := store.Connect(ctx, config.DatabaseConfig{
		URL:             databaseURL,
		MaxOpenConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgresStore(pool), pool.Close, nil
}

func addKeysCommand(parent *cobra.Command, v *viper.Viper, open openKeyStoreFunc) {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}

	var (
		databaseURL string
		scopes      string
	)
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an API key directly in the database",
		Long: `Create an API key by writing it straight to the database, for bootstrapping
the first admin key before any key exists. The raw key is printed once.

The database URL comes from --database-url or DATABASE_URL.

Examples:
  opsctl keys create bootstrap --scopes admin
  opsctl keys create ci-bot --scopes invoke`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindEnv("database_url", "DATABASE_URL"); err != nil {
				return err
			}
			if err := v.BindPFlag("database_url", cmd.Flags().Lookup("database-url")); err != nil {
				return err
			}
			dbURL := v.GetString("database_url")
			if dbURL == "" {
				return fmt.Errorf("%w: --database-url or DATABASE_URL is required", ErrUsage)
			}

			raw, key, err := apikey.Generate(args[0], splitScopes(scopes), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUsage, err)
			}

			ks, closeStore, err := open(cmd.Context(), dbURL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer closeStore()

			if err := ks.CreateAPIKey(cmd.Context(), key); err != nil {
				return fmt.Errorf("create key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:     %s\n", key.ID)
			fmt.Fprintf(out, "name:   %s\n", key.Name)
			fmt.Fprintf(out, "scopes: %s\n", strings.Join(key.Scopes, ","))
			fmt.Fprintf(out, "key:    %s\n", raw)
			fmt.Fprintln(cmd.ErrOrStderr(), "Store this key now; it cannot be shown again.")
			return nil
		},
	}
	create.Flags().StringVar(&databaseURL, "database-url", "", "postgres URL (defaults to DATABASE_URL)")
	create.Flags().StringVar(&scopes, "scopes", models.ScopeInvoke, "comma-separated scopes: invoke, admin")

	cmd.AddCommand(create)
	parent.AddCommand(cmd)
}

func splitScopes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
