package detector

import (
	"context"
	"errors"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
)

var (
	ErrMalformedMedia      = errors.New("media is empty, unreadable or does not match its declared type")
	ErrMediaUnreachable    = errors.New("media url is not reachable")
	ErrProviderTimeout     = errors.New("detector request timed out")
	ErrProviderUnavailable = errors.New("detector provider unavailable")
)

type Status string

const (
	StatusAuthentic   Status = "authentic"
	StatusManipulated Status = "manipulated"
	StatusUnknown     Status = "unknown"
)

func parseStatus(raw string) Status {
	switch Status(raw) {
	case StatusAuthentic, StatusManipulated:
		return Status(raw)
	default:
		return StatusUnknown
	}
}

// Media is a single item to analyze: either inline bytes or a remote URL.
type Media struct {
	FileName string
	Type     domain.MediaType
	Data     []byte
	URL      string
}

func (m Media) IsRemote() bool { return m.URL != "" && len(m.Data) == 0 }

type Result struct {
	OverallScore float64
	Status       Status
	Models       []domain.ModelResult
	RequestID    string
	Raw          []byte
}

// Client analyzes one media item per call. Implementations do not retry.
type Client interface {
	Detect(ctx context.Context, media Media) (*Result, error)
}
