package paymentgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrGatewayRejected     = errors.New("payment gateway rejected request")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrMalformedWebhook    = errors.New("malformed webhook event")
)

const StatusSuccess = "success"

type InitializeRequest struct {
	Email       string
	Amount      int64
	Currency    string
	Reference   string
	CallbackURL string
	Metadata    TransactionMetadata
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// TransactionMetadata is what we attach at initialization and the provider
// echoes back on verification. It is the only link from a reference to an
// owner.
type TransactionMetadata struct {
	UserID  uint `json:"user_id"`
	Credits int  `json:"credits"`
}

// UnmarshalJSON tolerates numbers sent as strings and metadata delivered as
// a JSON encoded string, both of which the provider does in practice.
func (m *TransactionMetadata) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || trimmed == `""` {
		*m = TransactionMetadata{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		return m.UnmarshalJSON([]byte(inner))
	}
	var raw struct {
		UserID  flexInt `json:"user_id"`
		Credits flexInt `json:"credits"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.UserID < 0 {
		return fmt.Errorf("metadata user_id must be positive")
	}
	m.UserID = uint(raw.UserID)
	m.Credits = int(raw.Credits)
	return nil
}

type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse integer %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}

type Transaction struct {
	Reference       string
	Status          string
	Amount          int64
	Currency        string
	Email           string
	GatewayResponse string
	Metadata        TransactionMetadata
	Raw             []byte
}

func (t *Transaction) Succeeded() bool { return t != nil && t.Status == StatusSuccess }

// Gateway initializes hosted checkouts and verifies their outcome.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*Transaction, error)
}
