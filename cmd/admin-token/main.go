package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/container"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "admin-token",
		Short:        "Issue caller credentials for the MVRouter gateway",
		SilenceUsage: true,
	}
	root.AddCommand(newIssueCommand(), newJWTCommand())
	return root
}

func newIssueCommand() *cobra.Command {
	var (
		name    string
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Create an API token; the secret is printed once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuthService(func(ctx context.Context, authSvc services.AuthenticationService) error {
				token, record, err := authSvc.IssueAPIToken(ctx, name, subject, ttl)
				if err != nil {
					return fmt.Errorf("failed to issue token: %w", err)
				}

				fmt.Printf("API token '%s' for subject '%s':\n", record.Name, record.Subject)
				fmt.Printf("%s\n", token)
				if record.ExpiresAt != nil {
					fmt.Printf("Expires: %s\n", record.ExpiresAt.Format(time.RFC3339))
				}
				fmt.Printf("\nExample curl command:\n")
				fmt.Printf("curl -H \"X-API-Key: %s\" -d '{\"model\":\"auto\",\"messages\":[]}' http://localhost:8080/api/v1/gateway\n", token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "token name")
	cmd.Flags().StringVar(&subject, "subject", "", "caller id the token authenticates as")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (0 never expires)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func newJWTCommand() *cobra.Command {
	var (
		subject string
		name    string
	)

	cmd := &cobra.Command{
		Use:   "jwt",
		Short: "Sign a caller JWT with auth.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuthService(func(ctx context.Context, authSvc services.AuthenticationService) error {
				token, err := authSvc.GenerateJWT(ctx, subject, name)
				if err != nil {
					return fmt.Errorf("failed to generate JWT token: %w", err)
				}

				fmt.Printf("JWT for subject '%s':\n", subject)
				fmt.Printf("%s\n", token)
				fmt.Printf("\nUse this token in the Authorization header:\n")
				fmt.Printf("Authorization: Bearer %s\n", token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "caller id placed in the sub claim")
	cmd.Flags().StringVar(&name, "name", "", "display name of the caller")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

// withAuthService builds the minimal container and runs fn against the authentication service
func withAuthService(fn func(ctx context.Context, authSvc services.AuthenticationService) error) error {
	var runErr error

	app := fx.New(
		container.CoreModule,
		container.AuthModule,
		fx.NopLogger,
		fx.Invoke(func(authSvc services.AuthenticationService) {
			runErr = fn(context.Background(), authSvc)
		}),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer app.Stop(ctx)

	return runErr
}
