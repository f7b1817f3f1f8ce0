package cmd

import (
	"fmt"

	"github.com/rustyeddy/accountmanager/secrets"
	"github.com/spf13/cobra"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage the stored broker credentials",
	Long: `Read and write the API key and callback URI used by the tda broker.

Secrets live in the OS keyring (secrets.backend: keyring) or in
environment variables backed by a .env file (secrets.backend: env).

Examples:
  accountmanager secrets configure
  accountmanager secrets set tda_api_key ABCDEF@AMER.OAUTHAP
  accountmanager secrets get tda_callback_uri`,
}

var secretsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a stored secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secretStore()
		if err != nil {
			return err
		}
		v, err := store.Get(args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store a secret, prompting when no value is given",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secretStore()
		if err != nil {
			return err
		}
		if len(args) == 2 {
			return store.Set(args[0], args[1])
		}
		_, err = secrets.Configure(store, args[0], secrets.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
		return err
	},
}

var secretsConfigureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Prompt for every broker secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secretStore()
		if err != nil {
			return err
		}
		p := secrets.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		for _, key := range []string{secrets.KeyAPIKey, secrets.KeyCallbackURI} {
			if _, err := secrets.Configure(store, key, p); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Secrets stored")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsGetCmd)
	secretsCmd.AddCommand(secretsSetCmd)
	secretsCmd.AddCommand(secretsConfigureCmd)
}

func secretStore() (secrets.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newStore(cfg)
}
