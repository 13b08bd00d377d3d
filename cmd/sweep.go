package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/companion-backend/internal/app"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one proactive sweep over all users and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.Services.Companion.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("users=%d sent=%d pending=%d no_trigger=%d failed=%d\n",
			rep.Users, rep.Sent, rep.Pending, rep.NoTrigger, rep.Failed)
		return nil
	},
}
