package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"village-portal/internal/app"
	"village-portal/internal/config"
	"village-portal/internal/logger"
	"village-portal/internal/model"
)

var (
	cfg *config.Config

	adminName     string
	adminUsername string
	adminEmail    string
	adminRole     string

	rootCmd = &cobra.Command{
		Use:           "village-portal",
		Short:         "Village government portal API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			cfg = loaded
			slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel))
			return nil
		},
		RunE: runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and seed lookup data, then exit",
		RunE:  runMigrate,
	}

	createAdminCmd = &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account; the password is read from PORTAL_ADMIN_PASSWORD",
		RunE:  runCreateAdmin,
	}
)

func init() {
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "display name")
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "login name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "email address")
	createAdminCmd.Flags().StringVar(&adminRole, "role", model.RoleSuperAdmin, "superadmin or administrator")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	application, err := app.New(cmd.Context(), cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		return err
	}

	if err := application.Run(cmd.Context()); err != nil {
		slog.Error("application run failed", "error", err)
		return err
	}
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	db, err := app.Open(cmd.Context(), cfg)
	if err != nil {
		slog.Error("migration failed", "error", err)
		return err
	}
	db.Close()
	return nil
}

func runCreateAdmin(cmd *cobra.Command, _ []string) error {
	if adminRole != model.RoleSuperAdmin && adminRole != model.RoleAdministrator {
		return fmt.Errorf("--role must be %q or %q", model.RoleSuperAdmin, model.RoleAdministrator)
	}

	password := os.Getenv("PORTAL_ADMIN_PASSWORD")
	if password == "" {
		return errors.New("PORTAL_ADMIN_PASSWORD is not set")
	}

	ctx := cmd.Context()
	db, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	auth, err := app.NewAuthService(cfg, db)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(adminName)
	if name == "" {
		name = adminUsername
	}

	in := model.RegisterInput{
		Name:            name,
		Username:        adminUsername,
		Email:           adminEmail,
		Password:        password,
		ConfirmPassword: password,
		Role:            adminRole,
	}
	if err := model.Validate(in); err != nil {
		return fmt.Errorf("invalid administrator: %w", err)
	}

	profile, err := auth.CreateActor(ctx, in)
	if err != nil {
		slog.Error("create administrator failed", "username", adminUsername, "error", err)
		return err
	}

	slog.Info("administrator created", "id", profile.ID, "username", profile.Username, "role", profile.Role)
	return nil
}
