package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	configPath := filepath.Join(base, "docpipe.toml")
	body := fmt.Sprintf("[paths]\ndata_dir = %q\n", filepath.Join(base, "data"))
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, filepath.Join(base, "data")
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output should name the target path, got %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init with --overwrite: %v", err)
	}
}

func TestConfigShowPrintsResolvedConfig(t *testing.T) {
	configPath, dataDir := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, dataDir) {
		t.Fatalf("output should contain resolved data dir, got %q", out)
	}
}

func TestSubmitEnqueuesDocument(t *testing.T) {
	configPath, dataDir := writeTestConfig(t)
	docPath := filepath.Join(t.TempDir(), "policy.txt")
	if err := os.WriteFile(docPath, []byte("Policy Number: POL-1\n"), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	out, err := runCommand(t, "--config", configPath, "submit", docPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "Submitted policy.txt") {
		t.Fatalf("unexpected submit output %q", out)
	}

	matches, err := filepath.Glob(filepath.Join(dataDir, "queues", "ingestion", "request_*.json"))
	if err != nil {
		t.Fatalf("glob queue: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 queued request, got %d", len(matches))
	}
}

func TestSubmitRejectsMissingFile(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	if _, err := runCommand(t, "--config", configPath, "submit", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("missing file should be rejected")
	}
}

func TestStatusRendersStageTable(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Pipeline", "ingestion", "recognition", "classification", "extraction", "matching"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestReportWithNoSubmissions(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "report")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, "No submissions recorded yet") {
		t.Fatalf("unexpected report output %q", out)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "nothing sent") {
		t.Fatalf("unexpected test-notify output %q", out)
	}
}
