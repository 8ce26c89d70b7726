package service

import (
	"math"
	"testing"

	"github.com/sandeepkv93/deepscan-backend/internal/detector"
	"github.com/sandeepkv93/deepscan-backend/internal/domain"
)

func TestMapVerdict(t *testing.T) {
	cases := []struct {
		status detector.Status
		score  float64
		want   domain.Classification
	}{
		{detector.StatusAuthentic, 0.99, domain.ClassificationAuthentic},
		{detector.StatusAuthentic, 0.01, domain.ClassificationAuthentic},
		{detector.StatusManipulated, 0.5, domain.ClassificationDeepfake},
		{detector.StatusManipulated, 0.97, domain.ClassificationDeepfake},
		{detector.StatusManipulated, 0.4999, domain.ClassificationSuspicious},
		{detector.StatusManipulated, 0, domain.ClassificationSuspicious},
		{detector.StatusUnknown, 0.9, domain.ClassificationSuspicious},
		{detector.Status(""), 0.1, domain.ClassificationSuspicious},
	}
	for _, tc := range cases {
		if got := MapVerdict(tc.status, tc.score); got != tc.want {
			t.Fatalf("MapVerdict(%q, %v) = %s want %s", tc.status, tc.score, got, tc.want)
		}
	}
}

func TestConfidenceScore(t *testing.T) {
	cases := map[float64]int{
		0:      0,
		1:      100,
		0.5:    50,
		0.285:  29,
		0.005:  1,
		0.004:  0,
		0.125:  13,
		0.9949: 99,
		0.995:  100,
		1.2:    100,
		-0.3:   0,
	}
	for score, want := range cases {
		if got := ConfidenceScore(score); got != want {
			t.Fatalf("ConfidenceScore(%v) = %d want %d", score, got, want)
		}
	}
	if got := ConfidenceScore(math.NaN()); got != 0 {
		t.Fatalf("expected NaN to map to 0, got %d", got)
	}
}
