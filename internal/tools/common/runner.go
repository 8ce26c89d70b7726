package common

import (
	"context"
	"time"

	"github.com/sandeepkv93/deepscan-backend/internal/config"
	"github.com/sandeepkv93/deepscan-backend/internal/database"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
	"github.com/sandeepkv93/deepscan-backend/internal/tools/ui"

	"gorm.io/gorm"
)

type Action func(context.Context) ([]string, error)

// Run executes action either headless (ci) or behind the interactive
// progress view, and records the tool metrics either way.
func Run(tool, command string, ci bool, timeout time.Duration, action Action) ([]string, error) {
	start := time.Now()
	var (
		details []string
		err     error
	)
	if ci {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		details, err = action(ctx)
		cancel()
	} else {
		details, err = ui.Run(tool+" "+command, timeout, action)
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	observability.RecordToolCommandRun(context.Background(), tool, command, outcome)
	observability.RecordToolCommandDuration(context.Background(), tool, command, outcome, time.Since(start))
	return details, err
}

// LoadConfigDB reads the env file and opens the configured database. Callers
// own closing the returned handle via CloseDB.
func LoadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func CloseDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
