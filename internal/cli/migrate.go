package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Migrate creates or upgrades the acts, sections, cross-reference and run
log tables in the configured store. It is safe to run repeatedly.

Example:
  lexharvest migrate
  LEXHARVEST_STORE_DRIVER=sqlite LEXHARVEST_STORE_DSN=acts.db lexharvest migrate`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.Migrate(ctx); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "✓ %s store is up to date\n", a.cfg.Store.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
