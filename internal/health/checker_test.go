package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func up(name string) Checker {
	return NewPingChecker(name, func(context.Context) error { return nil })
}

func down(name, reason string) Checker {
	return NewPingChecker(name, func(context.Context) error { return errors.New(reason) })
}

func TestProbeRunnerReadiness(t *testing.T) {
	tests := []struct {
		name      string
		checkers  []Checker
		wantReady bool
		wantNames []string
	}{
		{name: "all healthy", checkers: []Checker{up("db"), up("redis")}, wantReady: true, wantNames: []string{"db", "redis"}},
		{name: "one down", checkers: []Checker{up("db"), down("storage", "bucket missing")}, wantNames: []string{"db", "storage"}},
		{name: "nil checkers skipped", checkers: []Checker{nil, NewRedisChecker(nil), NewStorageChecker(nil), up("db")}, wantReady: true, wantNames: []string{"db"}},
		{name: "nothing to check", wantReady: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ready, results := NewProbeRunner(time.Second, 0, tc.checkers...).Ready(context.Background())
			if ready != tc.wantReady {
				t.Fatalf("ready = %v, want %v (%+v)", ready, tc.wantReady, results)
			}
			if len(results) != len(tc.wantNames) {
				t.Fatalf("expected %d results, got %+v", len(tc.wantNames), results)
			}
			for i, name := range tc.wantNames {
				if results[i].Name != name {
					t.Fatalf("result %d = %q, want %q", i, results[i].Name, name)
				}
			}
		})
	}
}

func TestProbeRunnerReportsFailureReason(t *testing.T) {
	_, results := NewProbeRunner(time.Second, 0, down("storage", "bucket missing")).Ready(context.Background())
	if results[0].Healthy || results[0].Error != "bucket missing" {
		t.Fatalf("unexpected result %+v", results[0])
	}
}

func TestProbeRunnerStartupGrace(t *testing.T) {
	runner := NewProbeRunner(time.Second, 2*time.Second, up("db"))
	clock := runner.startedAt
	runner.now = func() time.Time { return clock }

	ready, results := runner.Ready(context.Background())
	if ready || len(results) != 1 || results[0].Name != "startup_grace" {
		t.Fatalf("expected grace result, got ready=%v %+v", ready, results)
	}

	clock = clock.Add(3 * time.Second)
	if ready, _ := runner.Ready(context.Background()); !ready {
		t.Fatal("expected ready once grace elapsed")
	}
}

func TestProbeRunnerTimesOutSlowChecks(t *testing.T) {
	slow := NewStorageChecker(pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	began := time.Now()
	ready, results := NewProbeRunner(20*time.Millisecond, 0, slow, slow).Ready(context.Background())
	if ready || results[0].Healthy || results[1].Healthy {
		t.Fatalf("expected timed-out checks to be unhealthy, got %+v", results)
	}
	if results[0].LatencyMS <= 0 {
		t.Fatalf("expected latency to be recorded, got %+v", results[0])
	}
	if took := time.Since(began); took > time.Second {
		t.Fatalf("expected checks to run in parallel under the timeout, took %s", took)
	}
}

func TestNilDependenciesYieldNoChecker(t *testing.T) {
	if NewDBChecker(nil) != nil || NewRedisChecker(nil) != nil || NewStorageChecker(nil) != nil {
		t.Fatal("expected nil checkers for unconfigured dependencies")
	}
}
