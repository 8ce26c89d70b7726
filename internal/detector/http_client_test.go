package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// newTestClient allows private media URLs because every httptest origin
// listens on loopback.
func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *HTTPClient {
	t.Helper()
	return NewHTTPClient(Config{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		Timeout:       timeout,
		RatePerMinute: 6000,
		Burst:         10,

		AllowPrivateMediaURLs: true,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDetectUploadsInlineMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/detections", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "image", r.FormValue("media_type"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "selfie.png", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "manipulated",
			"score":      0.87,
			"request_id": "det-1",
			"models": []map[string]any{
				{"name": "face-swap", "status": "manipulated", "score": 0.87},
				{"name": "gan", "status": "authentic", "score": 0.12},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, time.Second)
	res, err := client.Detect(context.Background(), Media{FileName: "selfie.png", Type: domain.MediaTypeImage, Data: pngHeader})
	require.NoError(t, err)
	require.Equal(t, StatusManipulated, res.Status)
	require.InDelta(t, 0.87, res.OverallScore, 1e-9)
	require.Equal(t, "det-1", res.RequestID)
	require.Len(t, res.Models, 2)
	require.Equal(t, "face-swap", res.Models[0].Name)
	require.NotEmpty(t, res.Raw)
}

func TestDetectSendsRemoteURLAsJSON(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer origin.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, origin.URL+"/clip.mp4", body["url"])
		require.Equal(t, "video", body["media_type"])
		_, _ = w.Write([]byte(`{"status":"weird","score":0.4,"models":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, time.Second)
	res, err := client.Detect(context.Background(), Media{FileName: "clip.mp4", Type: domain.MediaTypeVideo, URL: origin.URL + "/clip.mp4"})
	require.NoError(t, err)
	require.Equal(t, StatusUnknown, res.Status)
}

func TestDetectRejectsMalformedMediaWithoutCallingProvider(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL, time.Second)

	cases := []Media{
		{FileName: "empty.png", Type: domain.MediaTypeImage},
		{FileName: "wrong.mp4", Type: domain.MediaTypeVideo, Data: pngHeader},
		{FileName: "doc.txt", Type: "document", Data: []byte("hello")},
		{FileName: "ftp", Type: domain.MediaTypeImage, URL: "ftp://example.com/a.png"},
	}
	for _, media := range cases {
		_, err := client.Detect(context.Background(), media)
		require.ErrorIs(t, err, ErrMalformedMedia, media.FileName)
	}
	require.Zero(t, calls)
}

func TestDetectReportsUnreachableURL(t *testing.T) {
	origin := httptest.NewServer(http.NotFoundHandler())
	defer origin.Close()
	client := newTestClient(t, "http://127.0.0.1:1", time.Second)

	_, err := client.Detect(context.Background(), Media{Type: domain.MediaTypeImage, URL: origin.URL + "/missing.png"})
	require.ErrorIs(t, err, ErrMediaUnreachable)
}

func TestDetectClassifiesProviderFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: http.StatusBadGateway, want: ErrProviderUnavailable},
		{name: "throttled", status: http.StatusTooManyRequests, want: ErrProviderUnavailable},
		{name: "rejected media", status: http.StatusUnprocessableEntity, want: ErrMalformedMedia},
		{name: "garbage body", status: http.StatusOK, body: "<html>", want: ErrProviderUnavailable},
		{name: "missing score", status: http.StatusOK, body: `{"status":"authentic"}`, want: ErrProviderUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, time.Second)
			_, err := client.Detect(context.Background(), Media{Type: domain.MediaTypeImage, Data: pngHeader})
			require.True(t, errors.Is(err, tc.want), "got %v want %v", err, tc.want)
		})
	}
}

func TestDetectTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 50*time.Millisecond)
	_, err := client.Detect(context.Background(), Media{Type: domain.MediaTypeImage, Data: pngHeader})
	require.ErrorIs(t, err, ErrProviderTimeout)
}

func TestDetectRefusesInternalMediaURLs(t *testing.T) {
	var internalHits, providerHits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		internalHits.Add(1)
	}))
	defer internal.Close()
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerHits.Add(1)
	}))
	defer provider.Close()

	client := NewHTTPClient(Config{BaseURL: provider.URL, Timeout: time.Second, RatePerMinute: 6000, Burst: 10}, nil)
	port := internal.Listener.Addr().(*net.TCPAddr).Port
	for _, u := range []string{
		internal.URL + "/admin/secrets",
		fmt.Sprintf("http://localhost:%d/admin/secrets", port),
	} {
		_, err := client.Detect(context.Background(), Media{Type: domain.MediaTypeImage, URL: u})
		require.ErrorIs(t, err, ErrMalformedMedia, u)
	}
	require.Zero(t, internalHits.Load())
	require.Zero(t, providerHits.Load())
}

func TestProbeGuardAppliesToRedirectHops(t *testing.T) {
	var internalHits, originHits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		internalHits.Add(1)
	}))
	defer internal.Close()
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		originHits.Add(1)
		http.Redirect(w, r, internal.URL+"/latest/meta-data", http.StatusFound)
	}))
	defer origin.Close()

	// Both servers listen on loopback, so the origin's port stands in for a
	// public address.
	originPort := uint16(origin.Listener.Addr().(*net.TCPAddr).Port)
	probe := guardedProbeClient(func(ap netip.AddrPort) error {
		if ap.Port() == originPort {
			return nil
		}
		return publicOnly(ap)
	})

	req, err := http.NewRequest(http.MethodHead, origin.URL+"/clip.mp4", nil)
	require.NoError(t, err)
	_, err = probe.Do(req)
	require.ErrorIs(t, err, errNonPublicAddress)
	require.Equal(t, int32(1), originHits.Load())
	require.Zero(t, internalHits.Load())
}

func TestIsPublicAddr(t *testing.T) {
	cases := map[string]bool{
		"93.184.216.34":    true,
		"2606:4700::1111":  true,
		"127.0.0.1":        false,
		"::1":              false,
		"10.1.2.3":         false,
		"172.16.0.9":       false,
		"192.168.1.1":      false,
		"169.254.169.254":  false,
		"fe80::1":          false,
		"0.0.0.0":          false,
		"100.64.0.1":       false,
		"::ffff:127.0.0.1": false,
		"fd00::1":          false,
	}
	for raw, want := range cases {
		require.Equal(t, want, isPublicAddr(netip.MustParseAddr(raw)), raw)
	}
}

func TestDetectRateBudgetIsNotATimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"authentic","score":0.1,"models":[]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL, Timeout: 200 * time.Millisecond, RatePerMinute: 1, Burst: 1}, nil)
	media := Media{Type: domain.MediaTypeImage, Data: pngHeader}
	_, err := client.Detect(context.Background(), media)
	require.NoError(t, err)

	started := time.Now()
	_, err = client.Detect(context.Background(), media)
	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.NotErrorIs(t, err, ErrProviderTimeout)
	require.Equal(t, "rate_budget", outcomeFor(err))
	require.Less(t, time.Since(started), 150*time.Millisecond)
}
