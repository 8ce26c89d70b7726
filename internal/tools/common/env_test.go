package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFileKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nDEEPSCAN_TOOL_A=from-file\nDEEPSCAN_TOOL_B=\"quoted\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("DEEPSCAN_TOOL_A", "from-shell")
	t.Setenv("DEEPSCAN_TOOL_B", "")
	_ = os.Unsetenv("DEEPSCAN_TOOL_B")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("DEEPSCAN_TOOL_A"); got != "from-shell" {
		t.Fatalf("expected shell value to win, got %q", got)
	}
	if got := os.Getenv("DEEPSCAN_TOOL_B"); got != "quoted" {
		t.Fatalf("expected unquoted file value, got %q", got)
	}
}

func TestLoadEnvFileMissingIsNoop(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("expected empty path to be ignored, got %v", err)
	}
}
