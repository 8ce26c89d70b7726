package integration

import (
	"net/http"
	"testing"
)

func TestScanRateLimitIsPerUser(t *testing.T) {
	ts := newTestServerWithOptions(t, testServerOptions{trialCredits: 10, scanRPM: 2})
	alice := tokenFor(t, "user-alice", "alice@example.com")
	bob := tokenFor(t, "user-bob", "bob@example.com")

	for i := 0; i < 2; i++ {
		resp, env := submitURLs(t, ts, alice, "authentic.jpg")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 on scan %d, got %d env=%+v", i+1, resp.StatusCode, env)
		}
	}

	resp, env := submitURLs(t, ts, alice, "authentic.jpg")
	if resp.StatusCode != http.StatusTooManyRequests || env.Error == nil {
		t.Fatalf("expected 429 on third scan, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on throttled scan")
	}
	if got := mustProfile(t, ts, alice).Credits; got != 8 {
		t.Fatalf("expected throttled scan to cost nothing, balance=%d", got)
	}

	resp, _ = submitURLs(t, ts, bob, "authentic.jpg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected another user to keep their own budget, got %d", resp.StatusCode)
	}

	// reads are not counted against the scan budget
	resp, _ = doJSON(t, ts.client, http.MethodGet, ts.baseURL+"/api/v1/scans", nil, bearer(alice))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected scan listing to stay available, got %d", resp.StatusCode)
	}
}
