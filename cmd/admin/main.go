package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/auth"
	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/models"
	"resolveflow/backend/internal/storage"
	"resolveflow/backend/internal/users"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cliActor is the identity recorded for changes made from the command line.
var cliActor = access.Actor{ID: "admin-cli", Name: "Admin CLI", Roles: models.RoleSet{models.RoleAdmin}}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "admin",
		Short:        "ResolveFlow administration tool",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		buildBlockCmd(),
		buildUnblockCmd(),
		buildTokenCmd(),
		buildCreateUserCmd(),
		buildComplaintCmd(),
	)
	return cmd
}

// openStore connects to the configured database. The CLI never falls back to
// memory storage: changes there would be lost on exit.
func openStore(ctx context.Context, cfg *config.Config) (*storage.Service, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	return storage.Connect(ctx, cfg.DatabaseURL, cfg.RedisURL)
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, s *storage.Service) error) error {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	s, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, cfg, s)
}

func buildBlockCmd() *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "block <user_id>",
		Short: "Block a user from signing in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, _ *config.Config, s *storage.Service) error {
				if _, err := s.GetUserByID(ctx, args[0]); err != nil {
					return err
				}
				if err := s.BlockUser(ctx, args[0], time.Duration(hours)*time.Hour); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s has been blocked.\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "Block duration in hours (0 blocks until unblocked)")
	return cmd
}

func buildUnblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <user_id>",
		Short: "Lift a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, _ *config.Config, s *storage.Service) error {
				if err := s.UnblockUser(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s has been unblocked.\n", args[0])
				return nil
			})
		},
	}
}

func buildTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user_id>",
		Short: "Issue an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cfg *config.Config, s *storage.Service) error {
				u, err := s.GetUserByID(ctx, args[0])
				if err != nil {
					return err
				}
				token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL).GenerateToken(u)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
}

func buildCreateUserCmd() *cobra.Command {
	var (
		name  string
		email string
		roles []string
	)
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a customer, agent or admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, _ *config.Config, s *storage.Service) error {
				svc := users.NewService(s, zerolog.New(cmd.ErrOrStderr()))
				u, err := svc.Create(ctx, cliActor, users.Input{Name: name, Email: email, Roles: roles})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) with roles %v\n", u.ID, u.Email, []string(u.Roles))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role to grant (repeatable): customer, agent, admin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func buildComplaintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complaint <complaint_id>",
		Short: "Show a complaint and its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, _ *config.Config, s *storage.Service) error {
				c, err := s.GetComplaint(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s\n  status: %s\n  customer: %s\n", c.ID, c.Title, c.Status, c.CustomerID)
				if c.IsAssigned() {
					fmt.Fprintf(out, "  assigned to: %s\n", c.AssignedTo)
				}
				for _, ev := range c.TimelineEvents {
					fmt.Fprintf(out, "  #%d %s %s: %s\n", ev.Seq, ev.CreatedAt.Format(time.RFC3339), ev.Kind, ev.Description)
				}
				return nil
			})
		},
	}
}
