package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/config"
	"github.com/maegy2011/FMS-sub000/internal/infra/postgres"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/password"
	"github.com/maegy2011/FMS-sub000/pkg/token"
)

var (
	flagUserName      string
	flagUserPassword  string
	flagUserQuestions []string
	flagUserAnswers   []string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account directly in the database",
	Long: `Create a user with password and security questions, bypassing the
HTTP gate. Exactly three question/answer pairs are required, matching
what the registration endpoint enforces.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(flagUserQuestions) != 3 || len(flagUserAnswers) != 3 {
			return fmt.Errorf("exactly 3 --question and 3 --answer flags are required")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		db, err := postgres.New(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		log := logger.NewNop()
		hasher := password.New(
			password.WithCost(cfg.Auth.BcryptCost),
			password.WithMinLength(cfg.Auth.MinPasswordLn),
		)
		tokens := token.NewService(token.Config{
			Secret:   cfg.Auth.JWTSecret,
			Issuer:   cfg.Auth.JWTIssuer,
			Lifetime: cfg.Auth.TokenLifetime,
		})
		auth := app.NewAuthService(postgres.NewUserRepository(db), tokens, hasher, log)

		input := app.RegisterInput{
			Username: flagUserName,
			Password: flagUserPassword,
		}
		for i := range flagUserQuestions {
			input.Questions = append(input.Questions, app.AnswerInput{
				Question: flagUserQuestions[i],
				Answer:   flagUserAnswers[i],
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		created, err := auth.Register(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		cmd.Printf("created user %s (%s)\n", created.Username, created.ID.String())
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&flagUserName, "username", "", "Username for the new account")
	userCreateCmd.Flags().StringVar(&flagUserPassword, "password", "", "Password for the new account")
	userCreateCmd.Flags().StringArrayVar(&flagUserQuestions, "question", nil, "Security question (repeat 3 times)")
	userCreateCmd.Flags().StringArrayVar(&flagUserAnswers, "answer", nil, "Answer for the matching --question (repeat 3 times)")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}
