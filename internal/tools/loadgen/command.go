package loadgen

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/deepscan-backend/internal/config"
	"github.com/sandeepkv93/deepscan-backend/internal/security"
	"github.com/sandeepkv93/deepscan-backend/internal/tools/common"
)

const exitLoadFailed = 4

type options struct {
	Config
	envFile    string
	subject    string
	email      string
	maxFailPct float64
	ci         bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "loadgen", Short: "Drive read-only API traffic for dashboards and alerts"}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	f.StringVar(&opts.Profile, "profile", "mixed", "traffic profile: read|mixed|error-heavy")
	f.StringVar(&opts.Token, "token", "", "identity token; minted from the env file when empty")
	f.DurationVar(&opts.Duration, "duration", 15*time.Second, "traffic duration")
	f.IntVar(&opts.RPS, "rps", 20, "requests per second")
	f.IntVar(&opts.Concurrency, "concurrency", 6, "concurrent workers")
	f.Int64Var(&opts.Seed, "seed", 42, "request rotation offset")
	f.StringVar(&opts.envFile, "env-file", ".env", "env file holding the identity signing settings")
	f.StringVar(&opts.subject, "subject", "demo-user", "subject for minted tokens")
	f.StringVar(&opts.email, "email", "demo@deepscan.local", "email for minted tokens")
	f.Float64Var(&opts.maxFailPct, "max-failure-pct", 100, "fail the run when transport failures exceed this share of requests")
	f.BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the selected traffic profile",
		RunE: func(*cobra.Command, []string) error {
			details, err := common.Run("loadgen", "run", opts.ci, opts.Duration+15*time.Second, opts.run)
			if opts.ci {
				common.PrintCIResult(err == nil, "loadgen run", details, err)
			}
			if err != nil {
				os.Exit(exitLoadFailed)
			}
			return nil
		},
	})
	return cmd
}

func (o *options) run(ctx context.Context) ([]string, error) {
	cfg := o.Config
	token, err := o.identityToken()
	if err != nil {
		return nil, err
	}
	cfg.Token = token

	res, err := Run(ctx, cfg)
	if err != nil {
		return nil, err
	}
	details := res.summary()
	if pct := res.failurePct(); pct > o.maxFailPct {
		return details, fmt.Errorf("transport failures %.1f%% exceed %.1f%%", pct, o.maxFailPct)
	}
	return details, nil
}

// identityToken mints a short-lived token with the API's own signing
// settings unless one was given or the profile only sends bad credentials.
func (o *options) identityToken() (string, error) {
	if o.Token != "" || o.Profile == "error-heavy" {
		return o.Token, nil
	}
	if err := common.LoadEnvFile(o.envFile); err != nil {
		return "", err
	}
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	return security.SignIdentityToken(cfg.IdentityJWTSecret, cfg.IdentityIssuer, cfg.IdentityAudience, o.subject, o.email, "", o.Duration+time.Minute)
}

func (r Result) summary() []string {
	return []string{
		fmt.Sprintf("total_requests=%d", r.TotalRequests),
		fmt.Sprintf("failures=%d", r.Failures),
		fmt.Sprintf("status_2xx=%d", r.Status2xx),
		fmt.Sprintf("status_4xx=%d", r.Status4xx),
		fmt.Sprintf("status_5xx=%d", r.Status5xx),
	}
}

func (r Result) failurePct() float64 {
	if r.TotalRequests == 0 {
		return 0
	}
	return float64(r.Failures) * 100 / float64(r.TotalRequests)
}
