package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
	"github.com/sandeepkv93/deepscan-backend/internal/paymentgateway"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
)

const (
	SettlementSourceVerify  = "verify"
	SettlementSourceWebhook = "webhook"

	webhookChargeSuccess = "charge.success"
	referencePrefix      = "dsc_"
)

var (
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrMetadataMismatch          = errors.New("payment metadata does not belong to caller")
	ErrInvalidCreditPack         = errors.New("invalid credit pack size")
	ErrInvalidWebhookSignature   = errors.New("invalid webhook signature")
	ErrPaymentReferenceRequired  = errors.New("payment reference is required")
)

type PaymentConfig struct {
	Currency      string
	UnitPrice     int64
	MaxCredits    int
	CallbackURL   string
	WebhookSecret string
}

type CheckoutSession struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Credits          int    `json:"credits"`
}

type SettlementOutcome struct {
	Reference string `json:"reference"`
	Credits   int    `json:"credits"`
	Balance   int    `json:"balance"`
	Replayed  bool   `json:"replayed"`
}

// PaymentService turns verified provider transactions into credits. The
// provider is always asked for the transaction state; callback bodies are
// never trusted on their own.
type PaymentService struct {
	gateway  paymentgateway.Gateway
	payments repository.PaymentRepository
	users    repository.UserRepository
	cache    *ResponseCache
	guard    SettlementGuard
	cfg      PaymentConfig
	logger   *slog.Logger
}

func NewPaymentService(
	gateway paymentgateway.Gateway,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	cache *ResponseCache,
	guard SettlementGuard,
	cfg PaymentConfig,
	logger *slog.Logger,
) *PaymentService {
	if cache == nil {
		cache = NewResponseCache(nil, ResponseCacheConfig{}, logger)
	}
	if guard == nil {
		guard = NewNoopSettlementGuard()
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	return &PaymentService{gateway: gateway, payments: payments, users: users, cache: cache, guard: guard, cfg: cfg, logger: logger}
}

// Initialize opens a hosted checkout for a pack of credits.
func (s *PaymentService) Initialize(ctx context.Context, userID uint, credits int) (*CheckoutSession, error) {
	if credits <= 0 || (s.cfg.MaxCredits > 0 && credits > s.cfg.MaxCredits) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCreditPack, credits)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	amount := int64(credits) * s.cfg.UnitPrice
	reference := referencePrefix + uuid.NewString()
	res, err := s.gateway.Initialize(ctx, paymentgateway.InitializeRequest{
		Email:       user.Email,
		Amount:      amount,
		Currency:    s.cfg.Currency,
		Reference:   reference,
		CallbackURL: s.cfg.CallbackURL,
		Metadata:    paymentgateway.TransactionMetadata{UserID: userID, Credits: credits},
	})
	if err != nil {
		observability.RecordPaymentSettlement(ctx, "initialize", "error")
		return nil, err
	}
	observability.RecordPaymentSettlement(ctx, "initialize", "success")
	if res.Reference != "" {
		reference = res.Reference
	}
	return &CheckoutSession{
		Reference:        reference,
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Amount:           amount,
		Currency:         s.cfg.Currency,
		Credits:          credits,
	}, nil
}

// Settle verifies reference with the provider and credits the caller at
// most once for it. User-initiated attempts are throttled after repeated
// failures; provider webhooks are not.
func (s *PaymentService) Settle(ctx context.Context, userID uint, reference, source string) (*SettlementOutcome, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrPaymentReferenceRequired
	}
	guarded := source != SettlementSourceWebhook
	if guarded {
		wait, err := s.guard.Check(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "settlement guard check failed", "user_id", userID, "error", err)
		} else if wait > 0 {
			observability.RecordPaymentSettlement(ctx, source, "throttled")
			return nil, &ThrottledError{RetryAfter: wait}
		}
	}

	spanCtx, span := observability.StartSpan(ctx, "payment.settle", attribute.String("payment.source", source))
	out, err := s.settle(spanCtx, userID, reference, source)
	if out != nil {
		span.SetAttributes(attribute.Bool("payment.replayed", out.Replayed), attribute.Int("payment.credits", out.Credits))
	}
	observability.EndSpan(span, err)
	observability.RecordPaymentSettlement(ctx, source, settlementOutcome(out, err))

	if guarded {
		switch {
		case err == nil:
			if resetErr := s.guard.Reset(ctx, userID); resetErr != nil {
				s.logger.WarnContext(ctx, "settlement guard reset failed", "user_id", userID, "error", resetErr)
			}
		case errors.Is(err, ErrMetadataMismatch), errors.Is(err, ErrPaymentVerificationFailed):
			if _, bumpErr := s.guard.RegisterFailure(ctx, userID); bumpErr != nil {
				s.logger.WarnContext(ctx, "settlement guard update failed", "user_id", userID, "error", bumpErr)
			}
		}
	}
	return out, err
}

func (s *PaymentService) settle(ctx context.Context, userID uint, reference, source string) (*SettlementOutcome, error) {
	tx, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		if errors.Is(err, paymentgateway.ErrTransactionNotFound) || errors.Is(err, paymentgateway.ErrGatewayRejected) {
			return nil, fmt.Errorf("%w: %v", ErrPaymentVerificationFailed, err)
		}
		return nil, err
	}

	// ownership is checked before anything else so a foreign reference is
	// always reported, settled or not
	if tx.Metadata.UserID != userID {
		observability.EmitAuditContext(ctx, observability.AuditInput{
			EventName:   "payment.settle",
			ActorUserID: userIDString(userID),
			TargetType:  "payment",
			TargetID:    reference,
			Action:      "settle",
			Outcome:     "rejected",
			Reason:      "metadata_owner_mismatch",
		}, "source", source, "metadata_user_id", tx.Metadata.UserID)
		return nil, ErrMetadataMismatch
	}
	if !tx.Succeeded() {
		s.logger.InfoContext(ctx, "payment not successful at provider", "reference", reference, "status", tx.Status)
		return nil, fmt.Errorf("%w: provider status %q", ErrPaymentVerificationFailed, tx.Status)
	}
	if tx.Metadata.Credits <= 0 {
		return nil, fmt.Errorf("%w: metadata carries no credits", ErrPaymentVerificationFailed)
	}
	if s.cfg.UnitPrice > 0 && tx.Amount < int64(tx.Metadata.Credits)*s.cfg.UnitPrice {
		return nil, fmt.Errorf("%w: amount %d does not cover %d credits", ErrPaymentVerificationFailed, tx.Amount, tx.Metadata.Credits)
	}

	email := tx.Email
	if email == "" {
		if u, err := s.users.FindByID(ctx, userID); err == nil {
			email = u.Email
		}
	}
	res, err := s.payments.Settle(ctx, repository.SettlementInput{
		Reference:      reference,
		UserID:         userID,
		Email:          email,
		Amount:         tx.Amount,
		Currency:       strings.ToUpper(tx.Currency),
		Credits:        tx.Metadata.Credits,
		ProviderStatus: tx.Status,
		RawPayload:     tx.Raw,
	})
	if err != nil {
		if errors.Is(err, repository.ErrPaymentOwnerMismatch) {
			return nil, ErrMetadataMismatch
		}
		return nil, err
	}

	if !res.Replayed {
		s.cache.Invalidate(ctx, userID, CacheOpProfile, CacheOpPaymentList)
		observability.RecordCreditLedgerEvent(ctx, "credit", "success")
		s.logger.InfoContext(ctx, "payment settled",
			"reference", reference,
			"user_id", userID,
			"credits", res.Payment.Credits,
			"source", source,
		)
	}
	return &SettlementOutcome{
		Reference: reference,
		Credits:   res.Payment.Credits,
		Balance:   res.Balance,
		Replayed:  res.Replayed,
	}, nil
}

// HandleWebhook authenticates a provider callback and settles it for the
// owner named in its metadata. Events other than a successful charge are
// acknowledged and ignored (nil outcome, nil error).
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*SettlementOutcome, error) {
	if !paymentgateway.VerifyWebhookSignature(s.cfg.WebhookSecret, body, signature) {
		observability.RecordPaymentSettlement(ctx, SettlementSourceWebhook, "bad_signature")
		observability.EmitAuditContext(ctx, observability.AuditInput{
			EventName:   "payment.webhook",
			ActorUserID: "provider",
			TargetType:  "webhook",
			Action:      "authenticate",
			Outcome:     "rejected",
			Reason:      "invalid_signature",
		})
		return nil, ErrInvalidWebhookSignature
	}
	ev, err := paymentgateway.ParseWebhookEvent(body)
	if err != nil {
		return nil, err
	}
	if ev.Event != webhookChargeSuccess {
		observability.RecordPaymentSettlement(ctx, SettlementSourceWebhook, "ignored")
		return nil, nil
	}
	if ev.Data.Metadata.UserID == 0 {
		return nil, fmt.Errorf("%w: webhook metadata has no owner", ErrPaymentVerificationFailed)
	}
	return s.Settle(ctx, ev.Data.Metadata.UserID, ev.Data.Reference, SettlementSourceWebhook)
}

func (s *PaymentService) ListPayments(ctx context.Context, userID uint, req repository.PageRequest) (repository.PageResult[domain.Payment], error) {
	key := fmt.Sprintf("page=%d&size=%d", req.Page, req.PageSize)
	page, _, err := cachedJSON(ctx, s.cache, CacheOpPaymentList, userID, key, func(ctx context.Context) (repository.PageResult[domain.Payment], error) {
		return s.payments.ListByUserPaged(ctx, userID, req)
	})
	return page, err
}

func settlementOutcome(out *SettlementOutcome, err error) string {
	switch {
	case err == nil && out != nil && out.Replayed:
		return "replayed"
	case err == nil:
		return "settled"
	case errors.Is(err, ErrMetadataMismatch):
		return "metadata_mismatch"
	case errors.Is(err, ErrPaymentVerificationFailed):
		return "verification_failed"
	case errors.Is(err, paymentgateway.ErrGatewayUnavailable):
		return "gateway_unavailable"
	default:
		return "error"
	}
}
