package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"

	"gorm.io/gorm"
)

var ErrEmailInUse = errors.New("email already linked to another identity")

type IdentityInput struct {
	ExternalID string
	Email      string
	Name       string
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpsertIdentity(ctx context.Context, in IdentityInput, trialCredits int) (*domain.User, bool, error)
	TryDebit(ctx context.Context, userID uint, amount int, entryType, reference string) (int, error)
	Credit(ctx context.Context, userID uint, amount int, entryType, reference string) (int, error)
	ListLedgerPaged(ctx context.Context, userID uint, req PageRequest) (PageResult[domain.CreditLedgerEntry], error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.findOne(ctx, "find_by_id", "id = ?", id)
}

func (r *GormUserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	return r.findOne(ctx, "find_by_external_id", "external_id = ?", externalID)
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "find_by_email", "email = ?", email)
}

func (r *GormUserRepository) findOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "user", op, "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(ctx, "user", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "user", op, "success")
	return &u, nil
}

// UpsertIdentity creates the user on first sight with the trial grant, or
// refreshes the profile fields the identity provider owns. The bool reports
// whether the row was created.
func (r *GormUserRepository) UpsertIdentity(ctx context.Context, in IdentityInput, trialCredits int) (*domain.User, bool, error) {
	for attempt := 0; ; attempt++ {
		u, created, err := r.upsertIdentityOnce(ctx, in, trialCredits)
		if errors.Is(err, errRetryableConflict) && attempt < maxConflictRetries {
			continue
		}
		if err != nil {
			if errors.Is(err, errRetryableConflict) {
				err = fmt.Errorf("upsert identity: %w", ErrEmailInUse)
			}
			observability.RecordRepositoryOperation(ctx, "user", "upsert_identity", "error")
			return nil, false, err
		}
		observability.RecordRepositoryOperation(ctx, "user", "upsert_identity", "success")
		return u, created, nil
	}
}

func (r *GormUserRepository) upsertIdentityOnce(ctx context.Context, in IdentityInput, trialCredits int) (*domain.User, bool, error) {
	now := time.Now().UTC()
	var out domain.User
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("external_id = ?", in.ExternalID).First(&out).Error
		if err == nil {
			updates := map[string]any{"last_seen_at": now}
			if in.Email != "" && in.Email != out.Email {
				updates["email"] = in.Email
			}
			if in.Name != "" && in.Name != out.Name {
				updates["name"] = in.Name
			}
			if err := tx.Model(&out).Updates(updates).Error; err != nil {
				if isUniqueConstraintErr(err) {
					return ErrEmailInUse
				}
				return err
			}
			out.LastSeenAt = now
			if v, ok := updates["email"].(string); ok {
				out.Email = v
			}
			if v, ok := updates["name"].(string); ok {
				out.Name = v
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var emailOwners int64
		if err := tx.Model(&domain.User{}).Where("email = ?", in.Email).Count(&emailOwners).Error; err != nil {
			return err
		}
		if emailOwners > 0 {
			return ErrEmailInUse
		}

		out = domain.User{
			ExternalID: in.ExternalID,
			Email:      in.Email,
			Name:       in.Name,
			Plan:       domain.PlanTrial,
			LastSeenAt: now,
		}
		if err := tx.Create(&out).Error; err != nil {
			if isUniqueConstraintErr(err) {
				return errRetryableConflict
			}
			return err
		}
		created = true
		if trialCredits > 0 {
			balance, err := applyCreditDelta(tx, out.ID, trialCredits, domain.CreditEntryTrialGrant, "trial")
			if err != nil {
				return err
			}
			out.Credits = balance
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, created, nil
}

func (r *GormUserRepository) TryDebit(ctx context.Context, userID uint, amount int, entryType, reference string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidCreditAmount
	}
	return r.mutateCredits(ctx, "try_debit", userID, -amount, entryType, reference)
}

func (r *GormUserRepository) Credit(ctx context.Context, userID uint, amount int, entryType, reference string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidCreditAmount
	}
	return r.mutateCredits(ctx, "credit", userID, amount, entryType, reference)
}

func (r *GormUserRepository) mutateCredits(ctx context.Context, op string, userID uint, delta int, entryType, reference string) (int, error) {
	var balance int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = applyCreditDelta(tx, userID, delta, entryType, reference)
		return err
	})
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, "user", op, "success")
	case errors.Is(err, ErrInsufficientCredits):
		observability.RecordRepositoryOperation(ctx, "user", op, "insufficient")
	case errors.Is(err, ErrUserNotFound):
		observability.RecordRepositoryOperation(ctx, "user", op, "not_found")
	default:
		observability.RecordRepositoryOperation(ctx, "user", op, "error")
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *GormUserRepository) ListLedgerPaged(ctx context.Context, userID uint, req PageRequest) (PageResult[domain.CreditLedgerEntry], error) {
	base := r.db.WithContext(ctx).Model(&domain.CreditLedgerEntry{}).Where("user_id = ?", userID)
	page, err := findPage[domain.CreditLedgerEntry](base, req)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "credit_ledger", "list_paged", "error")
		return PageResult[domain.CreditLedgerEntry]{}, err
	}
	observability.RecordRepositoryOperation(ctx, "credit_ledger", "list_paged", "success")
	return page, nil
}
