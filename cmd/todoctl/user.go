package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezkam/weathertodo/internal/application/auth"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserCreateCmd(), newUserDeleteCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var email, nickname string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user that todos and API keys can belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeStore(store)

			user, err := auth.CreateUser(cmd.Context(), store, email, nickname)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s, %s)\n", user.ID, user.Email, user.Nickname)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&nickname, "nickname", "", "Display name (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("nickname")
	return cmd
}

func newUserDeleteCmd() *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user and revoke its API keys; its todos are kept without an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := auth.DeleteUser(cmd.Context(), store, id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %d\n", id)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "User id (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
