package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/sandeepkv93/deepscan-backend/internal/observability"
)

type Config struct {
	BaseURL     string
	Profile     string
	Token       string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
	Client      *http.Client
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
}

type request struct {
	method string
	path   string
	authed bool
	header map[string]string
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	requests := requestsForProfile(cfg.Profile)
	if len(requests) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}
	if cfg.Token == "" && needsToken(requests) {
		return Result{}, fmt.Errorf("profile %s needs an identity token", cfg.Profile)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, s2xx, s4xx, s5xx int64
	jobs := make(chan request, cfg.Concurrency*2)
	wg := sync.WaitGroup{}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				req, err := http.NewRequestWithContext(ctx, job.method, cfg.BaseURL+job.path, nil)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				if job.authed {
					req.Header.Set("Authorization", "Bearer "+cfg.Token)
				}
				for k, v := range job.header {
					req.Header.Set(k, v)
				}
				resp, err := client.Do(req)
				if err != nil {
					if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
						atomic.AddInt64(&failures, 1)
					}
					continue
				}
				_ = resp.Body.Close()
				atomic.AddInt64(&total, 1)
				class := statusClass(resp.StatusCode)
				observability.RecordLoadgenRequest(ctx, class, cfg.Profile)
				switch class {
				case "2xx":
					atomic.AddInt64(&s2xx, 1)
				case "4xx":
					atomic.AddInt64(&s4xx, 1)
				case "5xx":
					atomic.AddInt64(&s5xx, 1)
				}
			}
		}()
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	offset := int(cfg.Seed)
	if offset < 0 {
		offset = -offset
	}
	for i := 0; ; i++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		select {
		case jobs <- requests[(offset+i)%len(requests)]:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()
	return Result{TotalRequests: total, Failures: failures, Status2xx: s2xx, Status4xx: s4xx, Status5xx: s5xx}, nil
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func needsToken(reqs []request) bool {
	for _, r := range reqs {
		if r.authed {
			return true
		}
	}
	return false
}

// Read-only traffic only: load generation never spends credits or opens
// payments.
func requestsForProfile(profile string) []request {
	reads := []request{
		{method: http.MethodGet, path: "/api/v1/me", authed: true},
		{method: http.MethodGet, path: "/api/v1/me/ledger?page=1&page_size=10", authed: true},
		{method: http.MethodGet, path: "/api/v1/scans?page=1&page_size=20", authed: true},
		{method: http.MethodGet, path: "/api/v1/payments", authed: true},
	}
	errorsOnly := []request{
		{method: http.MethodGet, path: "/api/v1/me"},
		{method: http.MethodGet, path: "/api/v1/scans", header: map[string]string{"Authorization": "Bearer invalid"}},
		{method: http.MethodPost, path: "/api/v1/payments/webhook", header: map[string]string{"X-Paystack-Signature": "bad"}},
	}
	switch strings.ToLower(profile) {
	case "read":
		return reads
	case "", "mixed":
		mixed := append([]request{{method: http.MethodGet, path: "/health/ready"}}, reads...)
		return append(mixed, errorsOnly[0])
	case "error-heavy":
		return errorsOnly
	default:
		return nil
	}
}
