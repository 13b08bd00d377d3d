package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/companion-backend/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := app.NewLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		pg, err := app.OpenDatabase(log)
		if err != nil {
			return err
		}
		log.Info("Migrations applied")
		return pg.Close()
	},
}
