package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maegy2011/FMS-sub000/internal/config"
	"github.com/maegy2011/FMS-sub000/pkg/domain/user"
	"github.com/maegy2011/FMS-sub000/pkg/token"
)

var (
	flagTokenUserID string
	flagTokenRole   string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage session tokens",
}

var tokenMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a session token for a user",
	Long: `Mint a signed session token using the server's JWT secret.

Useful for smoke tests and for bootstrapping an admin session before
any user can log in through the API.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		role := user.Role(flagTokenRole)
		if !role.IsValid() {
			return fmt.Errorf("invalid role %q (must be user or admin)", flagTokenRole)
		}

		tokens := token.NewService(token.Config{
			Secret:   cfg.Auth.JWTSecret,
			Issuer:   cfg.Auth.JWTIssuer,
			Lifetime: cfg.Auth.TokenLifetime,
		})

		tok, expiresAt, err := tokens.Issue(flagTokenUserID, role.String())
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		cmd.Println(tok)
		cmd.PrintErrf("expires at %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	tokenMintCmd.Flags().StringVar(&flagTokenUserID, "user-id", "", "User ID to embed in the token")
	tokenMintCmd.Flags().StringVar(&flagTokenRole, "role", user.RoleUser.String(), "Role to embed in the token")
	_ = tokenMintCmd.MarkFlagRequired("user-id")

	tokenCmd.AddCommand(tokenMintCmd)
}
