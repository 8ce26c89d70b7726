package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentOwnerMismatch = errors.New("payment belongs to another user")
)

// SettlementInput is a provider-verified successful transaction.
type SettlementInput struct {
	Reference      string
	UserID         uint
	Email          string
	Amount         int64
	Currency       string
	Credits        int
	ProviderStatus string
	RawPayload     []byte
}

type SettlementResult struct {
	Payment  *domain.Payment
	Replayed bool
	Balance  int
}

type PaymentRepository interface {
	Settle(ctx context.Context, in SettlementInput) (SettlementResult, error)
	FindByReference(ctx context.Context, reference string) (*domain.Payment, error)
	ListByUserPaged(ctx context.Context, userID uint, req PageRequest) (PageResult[domain.Payment], error)
}

type GormPaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &GormPaymentRepository{db: db} }

// Settle credits the owner for a reference exactly once. The payment row is
// locked for the duration of the transaction; the processed flag flips in
// the same transaction as the credit, so a replay only reads.
func (r *GormPaymentRepository) Settle(ctx context.Context, in SettlementInput) (SettlementResult, error) {
	if in.Credits <= 0 {
		return SettlementResult{}, ErrInvalidCreditAmount
	}
	for attempt := 0; ; attempt++ {
		res, err := r.settleOnce(ctx, in)
		if errors.Is(err, errRetryableConflict) && attempt < maxConflictRetries {
			continue
		}
		switch {
		case err != nil && errors.Is(err, ErrPaymentOwnerMismatch):
			observability.RecordRepositoryOperation(ctx, "payment", "settle", "owner_mismatch")
		case err != nil:
			observability.RecordRepositoryOperation(ctx, "payment", "settle", "error")
		case res.Replayed:
			observability.RecordRepositoryOperation(ctx, "payment", "settle", "replayed")
		default:
			observability.RecordRepositoryOperation(ctx, "payment", "settle", "success")
		}
		return res, err
	}
}

func (r *GormPaymentRepository) settleOnce(ctx context.Context, in SettlementInput) (SettlementResult, error) {
	var out SettlementResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference = ?", in.Reference).
			First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p = domain.Payment{
				Reference:      in.Reference,
				UserID:         in.UserID,
				Email:          in.Email,
				Amount:         in.Amount,
				Currency:       in.Currency,
				Credits:        in.Credits,
				ProviderStatus: in.ProviderStatus,
				RawPayload:     in.RawPayload,
			}
			if createErr := tx.Create(&p).Error; createErr != nil {
				if isUniqueConstraintErr(createErr) {
					return errRetryableConflict
				}
				return createErr
			}
		} else if err != nil {
			return err
		}

		if p.UserID != in.UserID {
			return ErrPaymentOwnerMismatch
		}
		if p.Processed {
			balance, err := currentBalance(tx, p.UserID)
			if err != nil {
				return err
			}
			out = SettlementResult{Payment: &p, Replayed: true, Balance: balance}
			return nil
		}

		balance, err := applyCreditDelta(tx, p.UserID, p.Credits, domain.CreditEntryPurchase, p.Reference)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		upd := tx.Model(&domain.Payment{}).
			Where("id = ? AND processed = ?", p.ID, false).
			Updates(map[string]any{
				"processed":       true,
				"processed_at":    now,
				"provider_status": in.ProviderStatus,
				"raw_payload":     in.RawPayload,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return errRetryableConflict
		}
		p.Processed = true
		p.ProcessedAt = &now
		p.ProviderStatus = in.ProviderStatus
		out = SettlementResult{Payment: &p, Balance: balance}
		return nil
	})
	if err != nil {
		return SettlementResult{}, err
	}
	return out, nil
}

func (r *GormPaymentRepository) FindByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "payment", "find_by_reference", "not_found")
			return nil, ErrPaymentNotFound
		}
		observability.RecordRepositoryOperation(ctx, "payment", "find_by_reference", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "payment", "find_by_reference", "success")
	return &p, nil
}

func (r *GormPaymentRepository) ListByUserPaged(ctx context.Context, userID uint, req PageRequest) (PageResult[domain.Payment], error) {
	base := r.db.WithContext(ctx).Model(&domain.Payment{}).Where("user_id = ?", userID)
	page, err := findPage[domain.Payment](base, req)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "payment", "list_paged", "error")
		return PageResult[domain.Payment]{}, err
	}
	observability.RecordRepositoryOperation(ctx, "payment", "list_paged", "success")
	return page, nil
}
