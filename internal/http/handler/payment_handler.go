package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sandeepkv93/deepscan-backend/internal/http/response"
	"github.com/sandeepkv93/deepscan-backend/internal/paymentgateway"
	"github.com/sandeepkv93/deepscan-backend/internal/service"
)

const webhookSignatureHeader = "X-Paystack-Signature"

type PaymentHandler struct {
	svc    service.PaymentServiceInterface
	logger *slog.Logger
}

func NewPaymentHandler(svc service.PaymentServiceInterface, logger *slog.Logger) *PaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentHandler{svc: svc, logger: logger}
}

func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}
	var body struct {
		Credits int `json:"credits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	session, err := h.svc.Initialize(r.Context(), p.UserID, body.Credits)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCreditPack):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid credit pack size", nil)
		default:
			writePaymentError(w, r, err, "failed to initialize payment")
		}
		return
	}
	response.JSON(w, r, http.StatusCreated, session)
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}
	var body struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	out, err := h.svc.Settle(r.Context(), p.UserID, body.Reference, service.SettlementSourceVerify)
	if err != nil {
		writePaymentError(w, r, err, "failed to verify payment")
		return
	}
	response.JSON(w, r, http.StatusOK, out)
}

// Webhook is unauthenticated; the signature header is the only credential.
// Outcomes a provider retry cannot change are acknowledged with 200.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	out, err := h.svc.HandleWebhook(r.Context(), body, r.Header.Get(webhookSignatureHeader))
	switch {
	case err == nil && out == nil:
		response.JSON(w, r, http.StatusOK, map[string]any{"received": true, "settled": false})
	case err == nil:
		response.JSON(w, r, http.StatusOK, map[string]any{"received": true, "settled": true, "replayed": out.Replayed})
	case errors.Is(err, service.ErrInvalidWebhookSignature):
		response.Error(w, r, http.StatusUnauthorized, "INVALID_SIGNATURE", "invalid webhook signature", nil)
	case errors.Is(err, service.ErrMetadataMismatch),
		errors.Is(err, service.ErrPaymentVerificationFailed),
		errors.Is(err, service.ErrUserNotFound):
		h.logger.WarnContext(r.Context(), "webhook not settled", "error", err.Error())
		response.JSON(w, r, http.StatusOK, map[string]any{"received": true, "settled": false})
	case errors.Is(err, paymentgateway.ErrGatewayUnavailable):
		response.Error(w, r, http.StatusServiceUnavailable, "PAYMENT_PROVIDER_UNAVAILABLE", "payment provider unavailable", nil)
	case errors.Is(err, paymentgateway.ErrMalformedWebhook):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed webhook event", nil)
	default:
		h.logger.ErrorContext(r.Context(), "webhook processing failed", "error", err.Error())
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to process webhook", nil)
	}
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	res, err := h.svc.ListPayments(r.Context(), p.UserID, pageReq)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list payments", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, paginatedData(res.Items, res.Page, res.PageSize, res.Total, res.TotalPages))
}

func writePaymentError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var throttled *service.ThrottledError
	switch {
	case errors.As(err, &throttled):
		w.Header().Set("Retry-After", strconv.Itoa(int(throttled.RetryAfter.Seconds())+1))
		response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many failed payment verifications", nil)
	case errors.Is(err, service.ErrPaymentReferenceRequired):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "reference is required", nil)
	case errors.Is(err, service.ErrMetadataMismatch):
		response.Error(w, r, http.StatusForbidden, "METADATA_MISMATCH", "payment does not belong to this account", nil)
	case errors.Is(err, service.ErrPaymentVerificationFailed):
		response.Error(w, r, http.StatusPaymentRequired, "PAYMENT_VERIFICATION_FAILED", "payment could not be verified", nil)
	case errors.Is(err, service.ErrUserNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
	case errors.Is(err, paymentgateway.ErrGatewayUnavailable):
		response.Error(w, r, http.StatusServiceUnavailable, "PAYMENT_PROVIDER_UNAVAILABLE", "payment provider unavailable", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}
