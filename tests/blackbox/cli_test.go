//go:build blackbox

package blackbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	out := run(t, "version")
	if !strings.Contains(out, "riskd version") {
		t.Fatalf("unexpected version output:\n%s", out)
	}
}

func TestConfigInitThenValidate(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "riskd.yaml")

	out := run(t, "config", "init", "--output", path)
	if !strings.Contains(out, "Created default configuration") {
		t.Fatalf("unexpected init output:\n%s", out)
	}

	out = run(t, "config", "validate", "--file", path)
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output:\n%s", out)
	}
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "riskd.yaml")

	bad := "venue:\n  kind: carrier-pigeon\n"
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runErr(t, "config", "validate", "--file", path)
	if err == nil {
		t.Fatalf("expected validation failure, got:\n%s", out)
	}
	if !strings.Contains(out, "venue.kind") {
		t.Fatalf("unexpected error output:\n%s", out)
	}
}

func TestLockoutsListEmpty(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "riskd.yaml")

	cfg := `
venue:
  kind: sim
session:
  timezone: America/Chicago
  open: "17:00"
  close: "16:00"
storage:
  snapshot_path: ` + filepath.Join(tmp, "state.db") + `
  journal_path: ` + filepath.Join(tmp, "audit.db") + `
`
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	out := run(t, "lockouts", "list", "--config", path)
	if !strings.Contains(out, "No lockouts recorded") {
		t.Fatalf("unexpected lockouts output:\n%s", out)
	}
}
