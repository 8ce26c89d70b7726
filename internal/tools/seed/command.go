package seed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/deepscan-backend/internal/config"
	"github.com/sandeepkv93/deepscan-backend/internal/database"
	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
	"github.com/sandeepkv93/deepscan-backend/internal/security"
	"github.com/sandeepkv93/deepscan-backend/internal/service"
	"github.com/sandeepkv93/deepscan-backend/internal/tools/common"
)

type options struct {
	envFile    string
	externalID string
	email      string
	name       string
	timeout    time.Duration
	ci         bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Local users and credits tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.externalID, "external-id", "demo-user", "identity provider subject")
	cmd.PersistentFlags().StringVar(&opts.email, "email", "demo@deepscan.local", "user email")
	cmd.PersistentFlags().StringVar(&opts.name, "name", "Demo User", "display name")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(
		newApplyCommand(opts),
		newGrantCreditsCommand(opts),
		newBalanceCommand(opts),
		newTokenCommand(opts),
	)
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	var minCredits int
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Provision the demo user and top up its credits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "apply", func(ctx context.Context) ([]string, error) {
				cfg, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				report, err := database.SeedDemoUser(ctx, db, opts.externalID, opts.email, opts.name, cfg.TrialCredits, minCredits)
				if err != nil {
					return nil, err
				}
				return []string{
					fmt.Sprintf("user_id=%d email=%s created=%t", report.UserID, report.Email, report.Created),
					fmt.Sprintf("granted=%d balance=%d", report.Granted, report.Balance),
				}, nil
			})
		},
	}
	cmd.Flags().IntVar(&minCredits, "min-credits", 10, "top the balance up to at least this many credits")
	return cmd
}

func newGrantCreditsCommand(opts *options) *cobra.Command {
	var (
		amount    int
		reference string
	)
	cmd := &cobra.Command{
		Use:   "grant-credits",
		Short: "Credit an existing user through the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "grant-credits", func(ctx context.Context) ([]string, error) {
				if amount <= 0 {
					return nil, fmt.Errorf("amount must be positive")
				}
				_, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				users := repository.NewUserRepository(db)
				u, err := users.FindByEmail(ctx, normalizeEmail(opts.email))
				if err != nil {
					return nil, err
				}
				if strings.TrimSpace(reference) == "" {
					reference = "manual:" + time.Now().UTC().Format(time.RFC3339)
				}
				balance, err := service.NewCreditLedger(users).Credit(ctx, u.ID, amount, domain.CreditEntryAdminGrant, reference)
				if err != nil {
					return nil, err
				}
				return []string{
					fmt.Sprintf("credited %d to %s", amount, u.Email),
					fmt.Sprintf("balance=%d reference=%s", balance, reference),
				}, nil
			})
		},
	}
	cmd.Flags().IntVar(&amount, "amount", 0, "credits to grant")
	cmd.Flags().StringVar(&reference, "reference", "", "ledger reference")
	return cmd
}

func newBalanceCommand(opts *options) *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a user's balance and latest ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "balance", func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				users := repository.NewUserRepository(db)
				u, err := users.FindByEmail(ctx, normalizeEmail(opts.email))
				if err != nil {
					return nil, err
				}
				ledger := service.NewCreditLedger(users)
				balance, err := ledger.Balance(ctx, u.ID)
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("user_id=%d email=%s balance=%d", u.ID, u.Email, balance)}
				if recent <= 0 {
					return details, nil
				}
				history, err := ledger.History(ctx, u.ID, repository.PageRequest{Page: 1, PageSize: recent})
				if err != nil {
					return details, err
				}
				for _, e := range history.Items {
					details = append(details, formatEntry(e))
				}
				return details, nil
			})
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 5, "number of ledger entries to print")
	return cmd
}

// newTokenCommand mints an identity token for local testing against the API.
func newTokenCommand(opts *options) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development identity token for the seed user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "token", func(ctx context.Context) ([]string, error) {
				if err := common.LoadEnvFile(opts.envFile); err != nil {
					return nil, err
				}
				cfg, err := config.Load()
				if err != nil {
					return nil, err
				}
				if cfg.Env == "production" {
					return nil, fmt.Errorf("refusing to mint identity tokens in production")
				}
				token, err := security.SignIdentityToken(cfg.IdentityJWTSecret, cfg.IdentityIssuer, cfg.IdentityAudience, opts.externalID, normalizeEmail(opts.email), opts.name, ttl)
				if err != nil {
					return nil, err
				}
				return []string{"token=" + token, "expires_in=" + ttl.String()}, nil
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func formatEntry(e domain.CreditLedgerEntry) string {
	return fmt.Sprintf("%s %+d -> %d (%s) %s", e.CreatedAt.UTC().Format(time.RFC3339), e.Amount, e.BalanceAfter, e.EntryType, e.Reference)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func execute(opts *options, command string, fn common.Action) error {
	details, err := common.Run("seed", command, opts.ci, opts.timeout, fn)
	if opts.ci {
		common.PrintCIResult(err == nil, "seed "+command, details, err)
	}
	if err != nil {
		os.Exit(3)
	}
	return nil
}
