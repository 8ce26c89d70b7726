package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/deepscan-backend/internal/observability"
)

type CheckResult struct {
	Name      string  `json:"name"`
	Healthy   bool    `json:"healthy"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// ProbeRunner answers readiness by running every dependency check in
// parallel under a per-check timeout. Results keep registration order.
type ProbeRunner struct {
	checkers    []Checker
	timeout     time.Duration
	gracePeriod time.Duration
	startedAt   time.Time
	now         func() time.Time
}

func NewProbeRunner(timeout, gracePeriod time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = time.Second
	}
	r := &ProbeRunner{timeout: timeout, gracePeriod: gracePeriod, now: time.Now}
	for _, c := range checkers {
		if c != nil {
			r.checkers = append(r.checkers, c)
		}
	}
	r.startedAt = r.now()
	return r
}

func (r *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	if r == nil {
		return true, nil
	}
	if r.gracePeriod > 0 && r.now().Sub(r.startedAt) < r.gracePeriod {
		return false, []CheckResult{{Name: "startup_grace", Error: "startup grace period active"}}
	}

	results := make([]CheckResult, len(r.checkers))
	var g errgroup.Group
	for i, c := range r.checkers {
		g.Go(func() error {
			results[i] = r.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for _, res := range results {
		ready = ready && res.Healthy
	}
	return ready, results
}

func (r *ProbeRunner) run(ctx context.Context, c Checker) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	began := time.Now()
	res := c.Check(checkCtx)
	took := time.Since(began)
	res.LatencyMS = float64(took.Microseconds()) / 1000

	outcome := "healthy"
	if !res.Healthy {
		outcome = "unhealthy"
	}
	observability.RecordHealthCheckDuration(ctx, res.Name, took)
	observability.RecordHealthCheckResult(ctx, res.Name, outcome)
	return res
}
