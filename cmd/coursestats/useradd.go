package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/pkg/utils"
)

// passwordEnv supplies the password when --password is not given.
const passwordEnv = "COURSESTATS_PASSWORD"

type userAddOptions struct {
	username string
	email    string
	fullName string
	role     string
	password string
}

func newUserAddCmd(root *rootOptions) *cobra.Command {
	opts := &userAddOptions{}
	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a user who can log in to the stats API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUserAdd(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.username, "username", "", "login name (required)")
	cmd.Flags().StringVar(&opts.email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&opts.fullName, "name", "", "display name")
	cmd.Flags().StringVar(&opts.role, "role", string(models.RoleInstructor), "student, instructor, admin or site_admin")
	cmd.Flags().StringVar(&opts.password, "password", "", "password (default: $"+passwordEnv+")")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func parseRole(v string) (models.Role, error) {
	switch r := models.Role(strings.ToLower(strings.TrimSpace(v))); r {
	case models.RoleStudent, models.RoleInstructor, models.RoleAdmin, models.RoleSiteAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("invalid --role value %q", v)
	}
}

func runUserAdd(cmd *cobra.Command, root *rootOptions, opts *userAddOptions) error {
	role, err := parseRole(opts.role)
	if err != nil {
		return err
	}
	password := opts.password
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if password == "" {
		return fmt.Errorf("no password: pass --password or set %s", passwordEnv)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ctx := cmd.Context()
	be, err := root.open(ctx, root.logger)
	if err != nil {
		return err
	}
	defer be.close()

	u, err := be.users.Create(ctx, opts.username, opts.email, hash, opts.fullName, role)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	root.logger.Info("user created", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) %s\n", u.Username, u.Role, u.ID)
	return err
}
