package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBuildAuditEventIncludesRequiredFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/payments/verify", nil)
	req.Header.Set("X-Request-Id", "req-test-1")
	req.RemoteAddr = "127.0.0.1:12345"

	ev := BuildAuditEvent(req, AuditInput{
		EventName:   "payment.settlement",
		ActorUserID: "42",
		TargetType:  "payment",
		TargetID:    "dsc_ref",
		Action:      "settle",
		Outcome:     "rejected",
		Reason:      "metadata_mismatch",
	})

	if ev.EventVersion != 1 {
		t.Fatalf("expected event version 1, got %d", ev.EventVersion)
	}
	if ev.ActorIP != "127.0.0.1" {
		t.Fatalf("unexpected actor ip: %s", ev.ActorIP)
	}
	if ev.RequestID != "req-test-1" {
		t.Fatalf("unexpected request id: %s", ev.RequestID)
	}
	if _, err := time.Parse(time.RFC3339, ev.TS); err != nil {
		t.Fatalf("expected RFC3339 ts, got %q err=%v", ev.TS, err)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}

func TestAuditEventValidateRejectsMissingEventName(t *testing.T) {
	ev := AuditEvent{
		EventVersion: 1,
		ActorUserID:  "42",
		TargetType:   "payment",
		Action:       "settle",
		Outcome:      "success",
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
	if err := ev.Validate(); err == nil {
		t.Fatal("expected validation error for missing event_name")
	}
}

func TestEmitAuditContextCarriesRequestMetadata(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	req := httptest.NewRequest("POST", "/api/v1/payments/verify", nil)
	req.Header.Set("X-Request-Id", "req-ctx-1")
	req.RemoteAddr = "10.0.0.7:5000"
	ctx := WithAuditRequest(context.Background(), req)

	EmitAuditContext(ctx, AuditInput{
		EventName:   "payment.settlement",
		ActorUserID: "7",
		TargetType:  "payment",
		TargetID:    "dsc_x",
		Action:      "settle",
		Outcome:     "rejected",
		Reason:      "metadata_mismatch",
	})

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v (%s)", err, buf.String())
	}
	if record["msg"] != "audit" || record["level"] != "WARN" {
		t.Fatalf("unexpected record header: %v", record)
	}
	if record["request_id"] != "req-ctx-1" || record["actor_ip"] != "10.0.0.7" {
		t.Fatalf("request metadata missing: %v", record)
	}
}
