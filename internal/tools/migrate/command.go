package migrate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/deepscan-backend/internal/config"
	"github.com/sandeepkv93/deepscan-backend/internal/database"
	"github.com/sandeepkv93/deepscan-backend/internal/tools/common"
)

const exitMigrateFailed = 3

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

// dbStep is a subcommand body that needs an open database.
type dbStep func(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error)

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "migrate", Short: "Manage the deepscan database schema"}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	f.BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	for _, sub := range []struct {
		use, short string
		step       dbStep
	}{
		{"up", "Create or update every table", up},
		{"status", "Report unmigrated tables and row counts", status},
		{"plan", "List the tables up would touch without changing anything", plan},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			RunE: func(*cobra.Command, []string) error {
				return execute(opts, sub.use, sub.step)
			},
		})
	}
	return cmd
}

func up(_ context.Context, _ *config.Config, db *gorm.DB) ([]string, error) {
	before := database.PendingTables(db)
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	details := []string{"tables: " + strings.Join(database.TableNames(db), ", ")}
	if len(before) > 0 {
		details = append(details, "created: "+strings.Join(before, ", "))
	}
	return details, nil
}

func status(ctx context.Context, _ *config.Config, db *gorm.DB) ([]string, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	details := []string{"dialect=" + db.Dialector.Name()}
	pending := database.PendingTables(db)
	if len(pending) > 0 {
		details = append(details, "pending tables: "+strings.Join(pending, ", "))
	}
	isPending := make(map[string]bool, len(pending))
	for _, p := range pending {
		isPending[p] = true
	}
	for _, table := range database.TableNames(db) {
		if isPending[table] {
			continue
		}
		var n int64
		if err := db.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
			return details, fmt.Errorf("count %s: %w", table, err)
		}
		details = append(details, fmt.Sprintf("rows_%s=%d", table, n))
	}
	return details, nil
}

func plan(_ context.Context, _ *config.Config, db *gorm.DB) ([]string, error) {
	pending := database.PendingTables(db)
	if len(pending) == 0 {
		pending = []string{"(none)"}
	}
	return []string{
		"automigrate: " + strings.Join(database.TableNames(db), ", "),
		"would create: " + strings.Join(pending, ", "),
		"dry run, nothing changed",
	}, nil
}

func execute(opts *options, command string, step dbStep) error {
	details, err := common.Run("migrate", command, opts.ci, opts.timeout, func(ctx context.Context) ([]string, error) {
		cfg, db, err := common.LoadConfigDB(opts.envFile)
		if err != nil {
			return nil, err
		}
		defer common.CloseDB(db)
		return step(ctx, cfg, db)
	})
	if opts.ci {
		common.PrintCIResult(err == nil, "migrate "+command, details, err)
	}
	if err != nil {
		os.Exit(exitMigrateFailed)
	}
	return nil
}
