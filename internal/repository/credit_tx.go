package repository

import (
	"errors"
	"strings"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidCreditAmount = errors.New("credit amount must be positive")

	errRetryableConflict = errors.New("retryable write conflict")
)

const maxConflictRetries = 3

// applyCreditDelta is the single balance mutation primitive. Debits use a
// conditional decrement so the balance can never go negative under
// concurrent writers; credits are a plain atomic increment. A ledger row
// with the resulting balance is written in the same transaction.
func applyCreditDelta(tx *gorm.DB, userID uint, delta int, entryType, reference string) (int, error) {
	if delta == 0 {
		return currentBalance(tx, userID)
	}

	q := tx.Model(&domain.User{}).Where("id = ?", userID)
	if delta < 0 {
		q = q.Where("credits >= ?", -delta)
	}
	res := q.Update("credits", gorm.Expr("credits + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := tx.Model(&domain.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
			return 0, err
		}
		if exists == 0 {
			return 0, ErrUserNotFound
		}
		return 0, ErrInsufficientCredits
	}

	balance, err := currentBalance(tx, userID)
	if err != nil {
		return 0, err
	}
	entry := domain.CreditLedgerEntry{
		UserID:       userID,
		EntryType:    entryType,
		Amount:       delta,
		BalanceAfter: balance,
		Reference:    reference,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, err
	}
	return balance, nil
}

func currentBalance(tx *gorm.DB, userID uint) (int, error) {
	var u domain.User
	if err := tx.Select("id", "credits").First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return u.Credits, nil
}

func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "unique violation")
}
