package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/companion-backend/internal/app"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user_id>",
	Short: "Issue an access token for an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.Repos.User.GetByID(dbctx.New(cmd.Context()), userID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %s not found", userID)
		}
		tok, err := a.Services.Auth.IssueAccessToken(userID)
		if err != nil {
			return err
		}
		cmd.Println(tok)
		return nil
	},
}
