package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestNewCIResultExtractsFields(t *testing.T) {
	res := NewCIResult("seed grant-credits", []string{"user_id=4", "balance=25", "granted 20 credits", "=skip"}, nil)
	if !res.OK || res.Error != "" {
		t.Fatalf("expected ok result, got %+v", res)
	}
	if len(res.Fields) != 2 || res.Fields["user_id"] != "4" || res.Fields["balance"] != "25" {
		t.Fatalf("unexpected fields %v", res.Fields)
	}

	failed := NewCIResult("migrate up", nil, errors.New("db down"))
	if failed.OK || failed.Error != "db down" || failed.Fields != nil {
		t.Fatalf("unexpected failure result %+v", failed)
	}
}

func TestWriteCIResultIsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCIResult(&buf, NewCIResult("loadgen run", []string{"total=10"}, nil)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if decoded["ok"] != true || decoded["title"] != "loadgen run" {
		t.Fatalf("unexpected document %v", decoded)
	}
	if _, ok := decoded["error"]; ok {
		t.Fatal("did not expect an error key on success")
	}
}
