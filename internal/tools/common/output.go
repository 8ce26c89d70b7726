package common

import (
	"encoding/json"
	"io"
	"os"
	"strings"
)

// CIResult is the single JSON document a tool prints in --ci mode. Detail
// lines shaped like "key=value" are also exposed in Fields so pipelines can
// read them without parsing text.
type CIResult struct {
	OK      bool              `json:"ok"`
	Title   string            `json:"title"`
	Details []string          `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func NewCIResult(title string, details []string, err error) CIResult {
	res := CIResult{OK: err == nil, Title: title, Details: details}
	if err != nil {
		res.Error = err.Error()
	}
	for _, d := range details {
		if strings.ContainsAny(d, " \t") {
			continue
		}
		k, v, ok := strings.Cut(d, "=")
		if !ok || k == "" {
			continue
		}
		if res.Fields == nil {
			res.Fields = map[string]string{}
		}
		res.Fields[k] = v
	}
	return res
}

func PrintCIResult(ok bool, title string, details []string, err error) {
	res := NewCIResult(title, details, err)
	res.OK = ok && err == nil
	_ = writeCIResult(os.Stdout, res)
}

func writeCIResult(w io.Writer, res CIResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
