package paymentgateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxGatewayResponseBytes = 1 << 20

type PaystackClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewPaystackClient(baseURL, secretKey string, timeout time.Duration) *PaystackClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaystackClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackTransaction struct {
	Reference       string              `json:"reference"`
	Status          string              `json:"status"`
	Amount          int64               `json:"amount"`
	Currency        string              `json:"currency"`
	GatewayResponse string              `json:"gateway_response"`
	Metadata        TransactionMetadata `json:"metadata"`
	Customer        struct {
		Email string `json:"email"`
	} `json:"customer"`
}

func (c *PaystackClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	payload := map[string]any{
		"email":        req.Email,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"reference":    req.Reference,
		"callback_url": req.CallbackURL,
		"metadata":     req.Metadata,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env, _, err := c.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}
	var out InitializeResult
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode initialize data: %v", ErrGatewayUnavailable, err)
	}
	if out.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: missing authorization url", ErrGatewayUnavailable)
	}
	return &out, nil
}

func (c *PaystackClient) Verify(ctx context.Context, reference string) (*Transaction, error) {
	env, raw, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	var tx paystackTransaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", ErrGatewayUnavailable, err)
	}
	if tx.Reference == "" {
		tx.Reference = reference
	}
	return &Transaction{
		Reference:       tx.Reference,
		Status:          tx.Status,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		Email:           tx.Customer.Email,
		GatewayResponse: tx.GatewayResponse,
		Metadata:        tx.Metadata,
		Raw:             raw,
	}, nil
}

func (c *PaystackClient) do(ctx context.Context, method, path string, body []byte) (*paystackEnvelope, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read body: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, ErrTransactionNotFound
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: decode envelope: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode >= 400 || !env.Status {
		return nil, nil, fmt.Errorf("%w: %s", ErrGatewayRejected, env.Message)
	}
	return &env, raw, nil
}

// VerifyWebhookSignature checks the hex HMAC-SHA512 of the raw body that the
// provider sends in the x-paystack-signature header.
func VerifyWebhookSignature(secretKey string, body []byte, signature string) bool {
	if secretKey == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

func SignWebhookBody(secretKey string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string              `json:"reference"`
		Status    string              `json:"status"`
		Metadata  TransactionMetadata `json:"metadata"`
	} `json:"data"`
}

func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if ev.Event == "" || ev.Data.Reference == "" {
		return nil, fmt.Errorf("%w: missing event or reference", ErrMalformedWebhook)
	}
	return &ev, nil
}
