package service

import (
	"math"

	"github.com/sandeepkv93/deepscan-backend/internal/detector"
	"github.com/sandeepkv93/deepscan-backend/internal/domain"
)

const deepfakeThreshold = 0.5

// MapVerdict classifies a detector outcome. Only a manipulated status at or
// above the threshold is a deepfake; anything the provider could not decide
// is treated as suspicious.
func MapVerdict(status detector.Status, score float64) domain.Classification {
	switch status {
	case detector.StatusAuthentic:
		return domain.ClassificationAuthentic
	case detector.StatusManipulated:
		if score >= deepfakeThreshold {
			return domain.ClassificationDeepfake
		}
		return domain.ClassificationSuspicious
	default:
		return domain.ClassificationSuspicious
	}
}

// ConfidenceScore converts a 0..1 score to a 0..100 percentage, rounding
// half away from zero. The inner rounding to 1e-8 strips binary float noise
// so 0.285 yields 29 rather than 28.
func ConfidenceScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	pct := math.Round(math.Round(score*1e8) / 1e6)
	return int(math.Max(0, math.Min(100, pct)))
}
