package service

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
)

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_busy_timeout=5000", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.CreditLedgerEntry{},
		&domain.VerificationResult{},
		&domain.Payment{},
		&domain.IdempotencyRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedServiceUser(t *testing.T, db *gorm.DB, externalID string, credits int) *domain.User {
	t.Helper()
	u := &domain.User{
		ExternalID: externalID,
		Email:      externalID + "@example.com",
		Name:       externalID,
		Plan:       domain.PlanTrial,
		Credits:    credits,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}
