package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const auditEventVersion = 1

// AuditInput is what callers know about a security relevant action. Request
// scoped fields are filled in by BuildAuditEvent.
type AuditInput struct {
	EventName   string
	ActorUserID string
	TargetType  string
	TargetID    string
	Action      string
	Outcome     string
	Reason      string
}

type AuditEvent struct {
	EventVersion int    `json:"event_version"`
	EventName    string `json:"event_name"`
	ActorUserID  string `json:"actor_user_id"`
	ActorIP      string `json:"actor_ip"`
	TargetType   string `json:"target_type"`
	TargetID     string `json:"target_id"`
	Action       string `json:"action"`
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason"`
	RequestID    string `json:"request_id"`
	TS           string `json:"ts"`
}

func (e AuditEvent) Validate() error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("event_name", e.EventName)
	check("actor_user_id", e.ActorUserID)
	check("target_type", e.TargetType)
	check("action", e.Action)
	check("outcome", e.Outcome)
	check("ts", e.TS)
	if e.EventVersion != auditEventVersion {
		missing = append(missing, "event_version")
	}
	if len(missing) > 0 {
		return errors.New("audit event missing fields: " + strings.Join(missing, ","))
	}
	return nil
}

type auditRequestKey struct{}

type auditRequest struct {
	requestID string
	ip        string
}

// WithAuditRequest stores the caller address and request id so services can
// emit audit events without holding the *http.Request.
func WithAuditRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, auditRequestKey{}, auditRequest{requestID: requestIDOf(r), ip: clientIP(r)})
}

func BuildAuditEvent(r *http.Request, in AuditInput) AuditEvent {
	return newAuditEvent(in, requestIDOf(r), clientIP(r))
}

func newAuditEvent(in AuditInput, requestID, ip string) AuditEvent {
	return AuditEvent{
		EventVersion: auditEventVersion,
		EventName:    in.EventName,
		ActorUserID:  in.ActorUserID,
		ActorIP:      ip,
		TargetType:   in.TargetType,
		TargetID:     in.TargetID,
		Action:       in.Action,
		Outcome:      in.Outcome,
		Reason:       in.Reason,
		RequestID:    requestID,
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
}

// EmitAudit logs a structured audit record for an HTTP request.
func EmitAudit(r *http.Request, in AuditInput, attrs ...any) {
	emit(r.Context(), BuildAuditEvent(r, in), attrs...)
}

// EmitAuditContext logs a structured audit record from service code.
func EmitAuditContext(ctx context.Context, in AuditInput, attrs ...any) {
	meta, _ := ctx.Value(auditRequestKey{}).(auditRequest)
	if meta.requestID == "" {
		meta.requestID = chimiddleware.GetReqID(ctx)
	}
	emit(ctx, newAuditEvent(in, meta.requestID, meta.ip), attrs...)
}

func emit(ctx context.Context, ev AuditEvent, attrs ...any) {
	level := slog.LevelInfo
	if ev.Outcome == "rejected" || ev.Outcome == "failure" {
		level = slog.LevelWarn
	}
	if err := ev.Validate(); err != nil {
		slog.WarnContext(ctx, "audit.invalid_event", "error", err, "event_name", ev.EventName)
	}
	base := []any{
		"event_version", ev.EventVersion,
		"event_name", ev.EventName,
		"actor_user_id", ev.ActorUserID,
		"actor_ip", ev.ActorIP,
		"target_type", ev.TargetType,
		"target_id", ev.TargetID,
		"action", ev.Action,
		"outcome", ev.Outcome,
		"reason", ev.Reason,
		"request_id", ev.RequestID,
		"ts", ev.TS,
	}
	slog.Log(ctx, level, "audit", append(base, attrs...)...)
}

func requestIDOf(r *http.Request) string {
	if r == nil {
		return ""
	}
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(chimiddleware.RequestIDHeader)
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
