package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/lifespan/pkg/logger"
)

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	admin.AddCommand(newAdminCreateCmd())
	return admin
}

func newAdminCreateCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create the administrator account if it does not exist",
		Example: `  lifespan admin create --email ops@example.com --password 's3cret-pass'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			log := logger.Get()

			svc, cleanup, err := build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()
			defer func() { _ = svc.Stop(context.WithoutCancel(ctx)) }()

			user, err := svc.EnsureAdmin(ctx, name, email, password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "admin %s (%s) ready\n", user.Email, user.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 8 characters")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
