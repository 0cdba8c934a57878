package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"scribe/internal/api"
)

func submitAndWait(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	out, _, err := env.run(t, "--output", "json", "submit", env.source, "--wait", "--tier", "high")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var status api.JobStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode submit output: %v\n%s", err, out)
	}
	if status.Status != "completed" {
		t.Fatalf("expected completed job, got %s (%s)", status.Status, status.Error)
	}
	return status.ID
}

func TestSubmitWaitExportAndQA(t *testing.T) {
	env := setupCLITestEnv(t)
	id := submitAndWait(t, env)

	out, _, err := env.run(t, "export", id, "--format", "vtt")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(out, "WEBVTT") {
		t.Fatalf("expected WEBVTT header, got %q", out)
	}
	requireContains(t, out, "00:00:03.000 --> 00:00:04.250")

	target := filepath.Join(t.TempDir(), "out", "meeting.srt")
	_, stderr, err := env.run(t, "export", id, "--out", target)
	if err != nil {
		t.Fatalf("export to file: %v", err)
	}
	requireContains(t, stderr, "Wrote "+target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	requireContains(t, string(data), "00:00:00,000 --> 00:00:03,000")

	dir := t.TempDir()
	if _, _, err := env.run(t, "export", id, "--format", "txt", "--out", dir); err != nil {
		t.Fatalf("export to directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "meeting.txt")); err != nil {
		t.Fatalf("expected export named after the source: %v", err)
	}

	out, _, err = env.run(t, "qa", id)
	if err != nil {
		t.Fatalf("qa: %v", err)
	}
	requireContains(t, out, "categories flagged (heuristic)")
	requireContains(t, out, "numbers")

	out, _, err = env.run(t, "--output", "yaml", "qa", id)
	if err != nil {
		t.Fatalf("qa yaml: %v", err)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if decoded["jobId"] != id || decoded["heuristic"] != true {
		t.Fatalf("unexpected yaml payload: %v", decoded)
	}
}

func TestStatusAndListCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	id := submitAndWait(t, env)

	out, _, err := env.run(t, "status", id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Job "+id+" ==")
	requireContains(t, out, "[OK] completed")
	requireContains(t, out, "Words:")

	out, _, err = env.run(t, "list", "--status", "completed")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, id[:8])
	requireContains(t, out, "completed")

	out, _, err = env.run(t, "list", "--status", "failed")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	requireContains(t, out, "No jobs")

	if _, _, err := env.run(t, "list", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestCancelAndDeleteCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	id := submitAndWait(t, env)

	out, _, err := env.run(t, "cancel", id)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "already finished")

	out, _, err = env.run(t, "delete", id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "deleted")

	_, _, err = env.run(t, "status", id)
	if err == nil {
		t.Fatal("expected status of deleted job to fail")
	}
	requireContains(t, err.Error(), "not found")
}

func TestSubmitRejectsUnsupportedAsset(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t, "submit", filepath.Join(t.TempDir(), "slides.pdf"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	requireContains(t, err.Error(), "not a transcribable")
}

func TestDaemonStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "daemon", "status")
	if err != nil {
		t.Fatalf("daemon status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "Running:")
	requireContains(t, out, "cli-test")
	requireContains(t, out, "FFmpeg")

	out, _, err = env.run(t, "--output", "json", "daemon", "status")
	if err != nil {
		t.Fatalf("daemon status json: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Running || status.Workflow.Engine != "stub" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	_, _, err := runCLI(t, []string{"--output", "xml", "config", "init", "--path", filepath.Join(t.TempDir(), "c.toml")})
	if err == nil {
		t.Fatal("expected invalid output format to fail")
	}
}
