package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", strings.ReplaceAll(t.Name(), "/", "_"))
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
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, externalID string, credits int) *domain.User {
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

func newResult(scanID string) domain.VerificationResult {
	return domain.VerificationResult{
		ScanID:          scanID,
		FileName:        scanID + ".jpg",
		FileType:        domain.MediaTypeImage,
		Status:          domain.ClassificationAuthentic,
		ConfidenceScore: 12,
		Models:          []domain.ModelResult{{Name: "face", Status: "authentic", Score: 0.12}},
		ProviderPayload: []byte(`{"schema_version":1}`),
	}
}
