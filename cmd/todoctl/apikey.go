package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezkam/weathertodo/internal/application/auth"
	"github.com/rezkam/weathertodo/internal/infrastructure/keygen"
)

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	cmd.AddCommand(newAPIKeyCreateCmd())
	return cmd
}

func newAPIKeyCreateCmd() *cobra.Command {
	var (
		userID  int64
		name    string
		days    int
		keyType string
		service string
		version string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key for a user",
		Long:  "Issue an API key for a user. The key is printed once and cannot be recovered.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user-id must be a positive user id")
			}
			if days < 0 {
				return errors.New("--days must be >= 0 (0 = never expires)")
			}

			store, err := openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeStore(store)

			var expiresAt *time.Time
			if days > 0 {
				expiry := time.Now().UTC().AddDate(0, 0, days)
				expiresAt = &expiry
			}

			apiKey, err := auth.CreateAPIKey(cmd.Context(), store, userID, keyType, service, version, name, expiresAt)
			if err != nil {
				return err
			}

			parts, err := keygen.ParseAPIKey(apiKey)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "API key created")
			fmt.Fprintln(out, "----------------------------------------")
			fmt.Fprintf(out, "User:    %d\n", userID)
			fmt.Fprintf(out, "Name:    %s\n", name)
			fmt.Fprintf(out, "Key:     %s\n", parts.DisplayKey())
			if expiresAt != nil {
				fmt.Fprintf(out, "Expires: %s (%d days)\n", expiresAt.Format(time.RFC3339), days)
			} else {
				fmt.Fprintln(out, "Expires: never")
			}
			fmt.Fprintln(out, "----------------------------------------")
			fmt.Fprintf(out, "API Key: %s\n", apiKey)
			fmt.Fprintln(out, "Save this key now. It will not be shown again.")
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "Owning user id (required)")
	cmd.Flags().StringVar(&name, "name", "", "Name/description for the key (required)")
	cmd.Flags().IntVar(&days, "days", 0, "Days until expiration (0 = never expires)")
	cmd.Flags().StringVar(&keyType, "type", keygen.DefaultKeyType, "Key type prefix")
	cmd.Flags().StringVar(&service, "service", keygen.DefaultService, "Service prefix")
	cmd.Flags().StringVar(&version, "key-version", keygen.DefaultVersion, "Version prefix")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
