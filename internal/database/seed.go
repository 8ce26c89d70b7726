package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"

	"gorm.io/gorm"
)

type SeedReport struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Created bool   `json:"created"`
	Granted int    `json:"granted"`
	Balance int    `json:"balance"`
}

// SeedDemoUser provisions a local user the way first sign-in would and tops
// it up to at least minCredits. Running it again is a no-op once the balance
// is there.
func SeedDemoUser(ctx context.Context, db *gorm.DB, externalID, email, name string, trialCredits, minCredits int) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "seed", time.Since(start))
	}()

	email = strings.ToLower(strings.TrimSpace(email))
	if strings.TrimSpace(externalID) == "" || email == "" {
		return nil, fmt.Errorf("seed user needs external id and email")
	}
	users := repository.NewUserRepository(db)
	u, created, err := users.UpsertIdentity(ctx, repository.IdentityInput{
		ExternalID: externalID,
		Email:      email,
		Name:       name,
	}, trialCredits)
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
		return nil, err
	}
	report := &SeedReport{UserID: u.ID, Email: u.Email, Created: created, Balance: u.Credits}
	if topUp := minCredits - u.Credits; topUp > 0 {
		balance, err := users.Credit(ctx, u.ID, topUp, domain.CreditEntryAdminGrant, "seed")
		if err != nil {
			observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
			return nil, err
		}
		report.Granted = topUp
		report.Balance = balance
	}
	observability.RecordDatabaseStartupEvent(ctx, "seed", "success")
	return report, nil
}
