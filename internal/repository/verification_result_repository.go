package repository

import (
	"context"
	"errors"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"

	"gorm.io/gorm"
)

var ErrVerificationResultNotFound = errors.New("verification result not found")

type ResultFilter struct {
	Status   domain.Classification
	FileType domain.MediaType
}

type VerificationResultRepository interface {
	CreateBatchWithDebit(ctx context.Context, userID uint, batchRef string, results []domain.VerificationResult) (int, error)
	FindByScanID(ctx context.Context, userID uint, scanID string) (*domain.VerificationResult, error)
	ListPaged(ctx context.Context, userID uint, filter ResultFilter, req PageRequest) (PageResult[domain.VerificationResult], error)
	DeleteByScanID(ctx context.Context, userID uint, scanID string) (*domain.VerificationResult, error)
}

type GormVerificationResultRepository struct{ db *gorm.DB }

func NewVerificationResultRepository(db *gorm.DB) VerificationResultRepository {
	return &GormVerificationResultRepository{db: db}
}

// CreateBatchWithDebit persists the successful items of a batch and debits
// one credit per persisted row in the same transaction. Either both happen
// or neither does. It returns the balance after the debit.
func (r *GormVerificationResultRepository) CreateBatchWithDebit(ctx context.Context, userID uint, batchRef string, results []domain.VerificationResult) (int, error) {
	var balance int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(results) > 0 {
			for i := range results {
				results[i].UserID = userID
			}
			if err := tx.Create(&results).Error; err != nil {
				return err
			}
		}
		var err error
		balance, err = applyCreditDelta(tx, userID, -len(results), domain.CreditEntryScanDebit, batchRef)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			observability.RecordRepositoryOperation(ctx, "verification_result", "create_batch", "insufficient")
		} else {
			observability.RecordRepositoryOperation(ctx, "verification_result", "create_batch", "error")
		}
		return 0, err
	}
	observability.RecordRepositoryOperation(ctx, "verification_result", "create_batch", "success")
	return balance, nil
}

func (r *GormVerificationResultRepository) FindByScanID(ctx context.Context, userID uint, scanID string) (*domain.VerificationResult, error) {
	var out domain.VerificationResult
	err := r.db.WithContext(ctx).Where("user_id = ? AND scan_id = ?", userID, scanID).First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "verification_result", "find_by_scan_id", "not_found")
			return nil, ErrVerificationResultNotFound
		}
		observability.RecordRepositoryOperation(ctx, "verification_result", "find_by_scan_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "verification_result", "find_by_scan_id", "success")
	return &out, nil
}

func (r *GormVerificationResultRepository) ListPaged(ctx context.Context, userID uint, filter ResultFilter, req PageRequest) (PageResult[domain.VerificationResult], error) {
	base := r.db.WithContext(ctx).Model(&domain.VerificationResult{}).Where("user_id = ?", userID)
	if filter.Status != "" {
		base = base.Where("status = ?", filter.Status)
	}
	if filter.FileType != "" {
		base = base.Where("file_type = ?", filter.FileType)
	}
	page, err := findPage[domain.VerificationResult](base, req)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "verification_result", "list_paged", "error")
		return PageResult[domain.VerificationResult]{}, err
	}
	observability.RecordRepositoryOperation(ctx, "verification_result", "list_paged", "success")
	return page, nil
}

// DeleteByScanID removes an owned result and returns the deleted row so the
// caller can clean up stored media.
func (r *GormVerificationResultRepository) DeleteByScanID(ctx context.Context, userID uint, scanID string) (*domain.VerificationResult, error) {
	var out domain.VerificationResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND scan_id = ?", userID, scanID).First(&out).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVerificationResultNotFound
			}
			return err
		}
		res := tx.Delete(&domain.VerificationResult{}, out.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVerificationResultNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVerificationResultNotFound) {
			observability.RecordRepositoryOperation(ctx, "verification_result", "delete_by_scan_id", "not_found")
		} else {
			observability.RecordRepositoryOperation(ctx, "verification_result", "delete_by_scan_id", "error")
		}
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "verification_result", "delete_by_scan_id", "success")
	return &out, nil
}
