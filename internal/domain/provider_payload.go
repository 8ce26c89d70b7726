package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

const ProviderPayloadSchemaVersion = 1

var (
	ErrProviderPayloadEmpty       = errors.New("provider payload is empty")
	ErrProviderPayloadUnsupported = errors.New("unsupported provider payload schema version")
)

// ProviderPayload is the stored copy of a detector response. Readers must go
// through ParseProviderPayload so that old rows fail loudly instead of
// decoding into zero values.
type ProviderPayload struct {
	SchemaVersion int           `json:"schema_version"`
	Provider      string        `json:"provider"`
	RequestID     string        `json:"request_id,omitempty"`
	Status        string        `json:"status"`
	Score         float64       `json:"score"`
	Models        []ModelResult `json:"models"`
}

func (p ProviderPayload) Encode() ([]byte, error) {
	if p.SchemaVersion == 0 {
		p.SchemaVersion = ProviderPayloadSchemaVersion
	}
	return json.Marshal(p)
}

func ParseProviderPayload(raw []byte) (ProviderPayload, error) {
	if len(raw) == 0 {
		return ProviderPayload{}, ErrProviderPayloadEmpty
	}
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ProviderPayload{}, fmt.Errorf("decode provider payload: %w", err)
	}
	switch probe.SchemaVersion {
	case ProviderPayloadSchemaVersion:
		var out ProviderPayload
		if err := json.Unmarshal(raw, &out); err != nil {
			return ProviderPayload{}, fmt.Errorf("decode provider payload v%d: %w", probe.SchemaVersion, err)
		}
		return out, nil
	default:
		return ProviderPayload{}, fmt.Errorf("%w: %d", ErrProviderPayloadUnsupported, probe.SchemaVersion)
	}
}
