package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/paymentgateway"
	paymentgomock "github.com/sandeepkv93/deepscan-backend/internal/paymentgateway/gomock"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
)

const testWebhookSecret = "sk_test_webhook"

func newPaymentFixture(t *testing.T) (*PaymentService, *paymentgomock.MockGateway, repository.UserRepository, *domain.User) {
	t.Helper()
	db := newServiceDBForTest(t)
	users := repository.NewUserRepository(db)
	gw := paymentgomock.NewMockGateway(gomock.NewController(t))
	svc := NewPaymentService(gw, repository.NewPaymentRepository(db), users, nil, nil, PaymentConfig{
		Currency:      "ngn",
		UnitPrice:     50000,
		MaxCredits:    100,
		CallbackURL:   "https://app.example.com/billing",
		WebhookSecret: testWebhookSecret,
	}, nil)
	return svc, gw, users, seedServiceUser(t, db, "payer", 1)
}

func successTx(ref string, userID uint, credits int) *paymentgateway.Transaction {
	return &paymentgateway.Transaction{
		Reference: ref,
		Status:    paymentgateway.StatusSuccess,
		Amount:    int64(credits) * 50000,
		Currency:  "NGN",
		Email:     "payer@example.com",
		Metadata:  paymentgateway.TransactionMetadata{UserID: userID, Credits: credits},
		Raw:       []byte(`{"status":"success"}`),
	}
}

func TestPaymentServiceSettleIsIdempotent(t *testing.T) {
	svc, gw, users, user := newPaymentFixture(t)
	gw.EXPECT().Verify(gomock.Any(), "dsc_ref1").Return(successTx("dsc_ref1", user.ID, 10), nil).Times(2)

	first, err := svc.Settle(context.Background(), user.ID, "dsc_ref1", SettlementSourceVerify)
	if err != nil {
		t.Fatalf("first settle: %v", err)
	}
	if first.Replayed || first.Credits != 10 || first.Balance != 11 {
		t.Fatalf("unexpected first outcome %+v", first)
	}
	second, err := svc.Settle(context.Background(), user.ID, "dsc_ref1", SettlementSourceVerify)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if !second.Replayed || second.Credits != 10 || second.Balance != 11 {
		t.Fatalf("expected replay with unchanged balance, got %+v", second)
	}
	u, _ := users.FindByID(context.Background(), user.ID)
	if u.Credits != 11 {
		t.Fatalf("expected balance 11, got %d", u.Credits)
	}
}

func TestPaymentServiceConcurrentSettleCreditsOnce(t *testing.T) {
	svc, gw, users, user := newPaymentFixture(t)
	gw.EXPECT().Verify(gomock.Any(), "dsc_race").Return(successTx("dsc_race", user.ID, 4), nil).Times(5)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Settle(context.Background(), user.ID, "dsc_race", SettlementSourceWebhook)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("settle: %v", err)
		}
	}
	u, _ := users.FindByID(context.Background(), user.ID)
	if u.Credits != 5 {
		t.Fatalf("expected exactly one credit of 4 on top of 1, got %d", u.Credits)
	}
}

func TestPaymentServiceMetadataMismatchRegardlessOfState(t *testing.T) {
	svc, gw, _, user := newPaymentFixture(t)
	foreign := successTx("dsc_foreign", user.ID+100, 3)
	gw.EXPECT().Verify(gomock.Any(), "dsc_foreign").Return(foreign, nil)
	if _, err := svc.Settle(context.Background(), user.ID, "dsc_foreign", SettlementSourceVerify); !errors.Is(err, ErrMetadataMismatch) {
		t.Fatalf("expected ErrMetadataMismatch on unsettled reference, got %v", err)
	}

	// settle for the owner, then try again as someone else
	gw.EXPECT().Verify(gomock.Any(), "dsc_mine").Return(successTx("dsc_mine", user.ID, 2), nil).Times(2)
	if _, err := svc.Settle(context.Background(), user.ID, "dsc_mine", SettlementSourceVerify); err != nil {
		t.Fatalf("owner settle: %v", err)
	}
	if _, err := svc.Settle(context.Background(), user.ID+1, "dsc_mine", SettlementSourceVerify); !errors.Is(err, ErrMetadataMismatch) {
		t.Fatalf("expected ErrMetadataMismatch on settled reference, got %v", err)
	}
}

func TestPaymentServiceVerificationFailures(t *testing.T) {
	svc, gw, users, user := newPaymentFixture(t)

	failed := successTx("dsc_failed", user.ID, 3)
	failed.Status = "failed"
	gw.EXPECT().Verify(gomock.Any(), "dsc_failed").Return(failed, nil)
	if _, err := svc.Settle(context.Background(), user.ID, "dsc_failed", SettlementSourceVerify); !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("expected ErrPaymentVerificationFailed, got %v", err)
	}

	short := successTx("dsc_short", user.ID, 3)
	short.Amount = 100
	gw.EXPECT().Verify(gomock.Any(), "dsc_short").Return(short, nil)
	if _, err := svc.Settle(context.Background(), user.ID, "dsc_short", SettlementSourceVerify); !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("expected underpaid transaction to fail verification, got %v", err)
	}

	gw.EXPECT().Verify(gomock.Any(), "dsc_missing").Return(nil, paymentgateway.ErrTransactionNotFound)
	if _, err := svc.Settle(context.Background(), user.ID, "dsc_missing", SettlementSourceVerify); !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("expected not-found to fail verification, got %v", err)
	}

	gw.EXPECT().Verify(gomock.Any(), "dsc_down").Return(nil, paymentgateway.ErrGatewayUnavailable)
	if _, err := svc.Settle(context.Background(), user.ID, "dsc_down", SettlementSourceVerify); !errors.Is(err, paymentgateway.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway error to pass through, got %v", err)
	}

	if _, err := svc.Settle(context.Background(), user.ID, "  ", SettlementSourceVerify); !errors.Is(err, ErrPaymentReferenceRequired) {
		t.Fatalf("expected ErrPaymentReferenceRequired, got %v", err)
	}

	u, _ := users.FindByID(context.Background(), user.ID)
	if u.Credits != 1 {
		t.Fatalf("expected balance untouched, got %d", u.Credits)
	}
}

func TestPaymentServiceInitialize(t *testing.T) {
	svc, gw, _, user := newPaymentFixture(t)
	gw.EXPECT().Initialize(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req paymentgateway.InitializeRequest) (*paymentgateway.InitializeResult, error) {
		if req.Amount != 5*50000 || req.Currency != "NGN" || req.Email != user.Email {
			t.Fatalf("unexpected initialize request %+v", req)
		}
		if req.Metadata.UserID != user.ID || req.Metadata.Credits != 5 {
			t.Fatalf("unexpected metadata %+v", req.Metadata)
		}
		return &paymentgateway.InitializeResult{AuthorizationURL: "https://checkout.example/abc", Reference: req.Reference}, nil
	})

	session, err := svc.Initialize(context.Background(), user.ID, 5)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if session.AuthorizationURL == "" || session.Amount != 250000 || len(session.Reference) <= len(referencePrefix) {
		t.Fatalf("unexpected session %+v", session)
	}

	if _, err := svc.Initialize(context.Background(), user.ID, 0); !errors.Is(err, ErrInvalidCreditPack) {
		t.Fatalf("expected ErrInvalidCreditPack for 0, got %v", err)
	}
	if _, err := svc.Initialize(context.Background(), user.ID, 101); !errors.Is(err, ErrInvalidCreditPack) {
		t.Fatalf("expected ErrInvalidCreditPack above max, got %v", err)
	}
}

func TestPaymentServiceWebhook(t *testing.T) {
	svc, gw, users, user := newPaymentFixture(t)
	body := []byte(`{"event":"charge.success","data":{"reference":"dsc_hook","status":"success","metadata":{"user_id":"` +
		userIDString(user.ID) + `","credits":"2"}}}`)

	if _, err := svc.HandleWebhook(context.Background(), body, "deadbeef"); !errors.Is(err, ErrInvalidWebhookSignature) {
		t.Fatalf("expected ErrInvalidWebhookSignature, got %v", err)
	}

	gw.EXPECT().Verify(gomock.Any(), "dsc_hook").Return(successTx("dsc_hook", user.ID, 2), nil)
	out, err := svc.HandleWebhook(context.Background(), body, paymentgateway.SignWebhookBody(testWebhookSecret, body))
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if out == nil || out.Credits != 2 || out.Balance != 3 {
		t.Fatalf("unexpected webhook outcome %+v", out)
	}

	ignored := []byte(`{"event":"transfer.success","data":{"reference":"tr_1"}}`)
	out, err = svc.HandleWebhook(context.Background(), ignored, paymentgateway.SignWebhookBody(testWebhookSecret, ignored))
	if err != nil || out != nil {
		t.Fatalf("expected ignored event, got %+v err=%v", out, err)
	}

	u, _ := users.FindByID(context.Background(), user.ID)
	if u.Credits != 3 {
		t.Fatalf("expected balance 3, got %d", u.Credits)
	}
}

func TestPaymentServiceThrottlesRepeatedFailures(t *testing.T) {
	db := newServiceDBForTest(t)
	users := repository.NewUserRepository(db)
	user := seedServiceUser(t, db, "prober", 0)
	gw := paymentgomock.NewMockGateway(gomock.NewController(t))
	guard := NewInMemorySettlementGuard(SettlementGuardPolicy{FreeAttempts: 1, BaseDelay: time.Minute, Multiplier: 2, MaxDelay: time.Hour, ResetWindow: time.Hour})
	svc := NewPaymentService(gw, repository.NewPaymentRepository(db), users, nil, guard, PaymentConfig{Currency: "NGN", UnitPrice: 1}, nil)

	gw.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(successTx("dsc_x", user.ID+9, 1), nil).Times(2)
	for i := 0; i < 2; i++ {
		if _, err := svc.Settle(context.Background(), user.ID, "dsc_x", SettlementSourceVerify); !errors.Is(err, ErrMetadataMismatch) {
			t.Fatalf("attempt %d: expected ErrMetadataMismatch, got %v", i, err)
		}
	}
	_, err := svc.Settle(context.Background(), user.ID, "dsc_x", SettlementSourceVerify)
	var throttled *ThrottledError
	if !errors.As(err, &throttled) || !errors.Is(err, ErrSettlementThrottled) || throttled.RetryAfter <= 0 {
		t.Fatalf("expected throttled error, got %v", err)
	}
}
