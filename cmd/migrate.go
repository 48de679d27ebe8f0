package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		cmd.Printf("Database is up to date (%s)\n", cfg.DBType)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
