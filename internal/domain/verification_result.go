package domain

import (
	"strings"
	"time"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

func ParseMediaType(raw string) (MediaType, bool) {
	switch MediaType(strings.ToLower(strings.TrimSpace(raw))) {
	case MediaTypeImage:
		return MediaTypeImage, true
	case MediaTypeVideo:
		return MediaTypeVideo, true
	case MediaTypeAudio:
		return MediaTypeAudio, true
	default:
		return "", false
	}
}

type Classification string

const (
	ClassificationAuthentic  Classification = "AUTHENTIC"
	ClassificationSuspicious Classification = "SUSPICIOUS"
	ClassificationDeepfake   Classification = "DEEPFAKE"
)

func ParseClassification(raw string) (Classification, bool) {
	switch c := Classification(strings.ToUpper(strings.TrimSpace(raw))); c {
	case ClassificationAuthentic, ClassificationSuspicious, ClassificationDeepfake:
		return c, true
	default:
		return "", false
	}
}

type ModelResult struct {
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

// VerificationResult is immutable once written; the owner may delete it.
type VerificationResult struct {
	ID              uint           `gorm:"primaryKey" json:"-"`
	UserID          uint           `gorm:"not null;index;uniqueIndex:ux_verification_results_owner_scan,priority:1" json:"-"`
	ScanID          string         `gorm:"size:36;not null;uniqueIndex:ux_verification_results_owner_scan,priority:2" json:"scan_id"`
	FileName        string         `gorm:"size:255;not null" json:"file_name"`
	FileType        MediaType      `gorm:"size:16;not null" json:"file_type"`
	Status          Classification `gorm:"size:16;not null;index" json:"status"`
	ConfidenceScore int            `gorm:"not null" json:"confidence_score"`
	Models          []ModelResult  `gorm:"serializer:json;type:text;not null" json:"models"`
	MediaRef        string         `gorm:"size:1024" json:"media_ref,omitempty"`
	ProviderPayload []byte         `gorm:"not null" json:"-"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}
