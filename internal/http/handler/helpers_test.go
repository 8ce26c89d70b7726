package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/deepscan-backend/internal/http/middleware"
)

func reqAsUser(r *http.Request, userID uint) *http.Request {
	return r.WithContext(middleware.WithPrincipal(r.Context(), &middleware.Principal{UserID: userID, Email: "ada@example.com"}))
}

func withURLParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func decodeErrCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	errObj, _ := env["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env["success"] != true {
		t.Fatalf("expected success envelope, got %v", env)
	}
	data, _ := env["data"].(map[string]any)
	return data
}

func TestParsePageRequest(t *testing.T) {
	tests := []struct {
		query   string
		wantErr bool
		page    int
		size    int
	}{
		{query: "", page: 1, size: 20},
		{query: "page=3&page_size=50", page: 3, size: 50},
		{query: "page=0", wantErr: true},
		{query: "page_size=abc", wantErr: true},
		{query: "page_size=101", wantErr: true},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/x?"+tc.query, nil)
		got, err := parsePageRequest(req)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.query)
			}
			continue
		}
		if err != nil || got.Page != tc.page || got.PageSize != tc.size {
			t.Fatalf("%q: got %+v err=%v", tc.query, got, err)
		}
	}
}
