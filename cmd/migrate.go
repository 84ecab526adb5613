package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vigil-data/vigil/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.RunMigrations(appCfg.Database)
	},
}
