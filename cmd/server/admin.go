package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"komunitas/pendataan/internal/service"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := commonRun()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("schema up to date")
			return nil
		},
	}
}

func createAdminCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := commonRun()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			accounts := service.NewAccounts(store, cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, logger)
			account, err := accounts.CreateAdmin(ctx, email, password)
			if err != nil {
				return fmt.Errorf("failed to create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin created\nid:    %s\nemail: %s\n", account.ID, account.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	cmd.Flags().StringVar(&password, "password", "", "administrator password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
