package database

import (
	"context"
	"time"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"

	"gorm.io/gorm"
)

// Models lists every table the API owns, in dependency order.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.CreditLedgerEntry{},
		&domain.VerificationResult{},
		&domain.Payment{},
		&domain.IdempotencyRecord{},
	}
}

func Migrate(db *gorm.DB) error {
	start := time.Now()
	err := db.AutoMigrate(Models()...)
	observability.RecordDatabaseStartupDuration(context.Background(), "migrate", time.Since(start))
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "success")
	return nil
}

func TableNames(db *gorm.DB) []string {
	names := make([]string, 0, len(Models()))
	for _, m := range Models() {
		if name, ok := tableName(db, m); ok {
			names = append(names, name)
		}
	}
	return names
}

// PendingTables reports which model tables do not exist yet.
func PendingTables(db *gorm.DB) []string {
	var missing []string
	for _, m := range Models() {
		if db.Migrator().HasTable(m) {
			continue
		}
		if name, ok := tableName(db, m); ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func tableName(db *gorm.DB, model any) (string, bool) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return "", false
	}
	return stmt.Schema.Table, true
}
