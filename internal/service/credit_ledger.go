package service

import (
	"context"
	"errors"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
)

var (
	ErrInsufficientCredits = repository.ErrInsufficientCredits
	ErrUserNotFound        = repository.ErrUserNotFound
)

// CreditLedger is the only entry point for balance changes outside of the
// batch persistence transaction.
type CreditLedger struct {
	users repository.UserRepository
}

func NewCreditLedger(users repository.UserRepository) *CreditLedger {
	return &CreditLedger{users: users}
}

func (l *CreditLedger) Balance(ctx context.Context, userID uint) (int, error) {
	u, err := l.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Credits, nil
}

// TryDebit removes amount credits or fails with ErrInsufficientCredits
// without changing the balance.
func (l *CreditLedger) TryDebit(ctx context.Context, userID uint, amount int, reference string) (int, error) {
	balance, err := l.users.TryDebit(ctx, userID, amount, domain.CreditEntryScanDebit, reference)
	observability.RecordCreditLedgerEvent(ctx, "debit", ledgerOutcome(err))
	if errors.Is(err, ErrInsufficientCredits) {
		observability.EmitAuditContext(ctx, observability.AuditInput{
			EventName:   "credits.debit",
			ActorUserID: userIDString(userID),
			TargetType:  "user",
			TargetID:    userIDString(userID),
			Action:      "debit",
			Outcome:     "rejected",
			Reason:      "insufficient_credits",
		}, "amount", amount)
	}
	return balance, err
}

func (l *CreditLedger) Credit(ctx context.Context, userID uint, amount int, entryType, reference string) (int, error) {
	if entryType == "" {
		entryType = domain.CreditEntryAdminGrant
	}
	balance, err := l.users.Credit(ctx, userID, amount, entryType, reference)
	observability.RecordCreditLedgerEvent(ctx, "credit", ledgerOutcome(err))
	return balance, err
}

func (l *CreditLedger) History(ctx context.Context, userID uint, req repository.PageRequest) (repository.PageResult[domain.CreditLedgerEntry], error) {
	return l.users.ListLedgerPaged(ctx, userID, req)
}

func ledgerOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInsufficientCredits):
		return "insufficient"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrInvalidCreditAmount):
		return "invalid"
	default:
		return "error"
	}
}
