package service

import (
	"context"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
	"github.com/sandeepkv93/deepscan-backend/internal/security"
)

type ScanServiceInterface interface {
	Submit(ctx context.Context, userID uint, items []MediaItem) (*ScanBatchResult, error)
	Get(ctx context.Context, userID uint, scanID string) (*ScanDetail, error)
	List(ctx context.Context, userID uint, filter repository.ResultFilter, req repository.PageRequest) (repository.PageResult[domain.VerificationResult], error)
	Delete(ctx context.Context, userID uint, scanID string) error
	MaxItems() int
}

type PaymentServiceInterface interface {
	Initialize(ctx context.Context, userID uint, credits int) (*CheckoutSession, error)
	Settle(ctx context.Context, userID uint, reference, source string) (*SettlementOutcome, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*SettlementOutcome, error)
	ListPayments(ctx context.Context, userID uint, req repository.PageRequest) (repository.PageResult[domain.Payment], error)
}

type UserServiceInterface interface {
	Resolve(ctx context.Context, claims *security.IdentityClaims) (*domain.User, error)
	SyncIdentity(ctx context.Context, claims *security.IdentityClaims) (*domain.User, error)
	Profile(ctx context.Context, userID uint) (*Profile, error)
	Ledger(ctx context.Context, userID uint, req repository.PageRequest) (repository.PageResult[domain.CreditLedgerEntry], error)
}

var (
	_ ScanServiceInterface    = (*ScanService)(nil)
	_ PaymentServiceInterface = (*PaymentService)(nil)
	_ UserServiceInterface    = (*UserService)(nil)
	_ IdempotencyStore        = (*DBIdempotencyStore)(nil)
)
