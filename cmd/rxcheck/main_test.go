package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/giygas/rxscan-api/analysis"
)

func writeReference(t *testing.T) (drugs, interactions, info string) {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"drugs.csv":        "name,aliases\nAspirin,ASA\nWarfarin,Coumadin\n",
		"interactions.csv": "drug_a,drug_b,severity,note\naspirin,warfarin,major,Bleeding risk\n",
		"info.csv":         "name,purpose\nAspirin,Pain reliever\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "drugs.csv"), filepath.Join(dir, "interactions.csv"), filepath.Join(dir, "info.csv")
}

func TestRunPrintsSummary(t *testing.T) {
	drugs, interactions, info := writeReference(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{
		"--drugs", drugs, "--interactions", interactions, "--info", info,
		"asa", "coumadin",
	}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d (stderr %s)", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"## Aspirin", "**Purpose:** Pain reliever", "## Warfarin", "Bleeding risk"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunJSON(t *testing.T) {
	drugs, interactions, info := writeReference(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{
		"--drugs", drugs, "--interactions", interactions, "--info", info,
		"--json", "--text", "patient takes aspirin and warfarin",
	}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d (stderr %s)", code, stderr.String())
	}

	var report analysis.Report
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("Expected JSON report on stdout: %v\n%s", err, stdout.String())
	}
	if report.CheckedPairs != 1 || len(report.Interactions) != 1 {
		t.Errorf("Expected one interacting pair, got %d pairs, %d interactions", report.CheckedPairs, len(report.Interactions))
	}
}

func TestRunEnvironmentFlags(t *testing.T) {
	drugs, interactions, info := writeReference(t)
	t.Setenv("RXCHECK_DRUGS", drugs)
	t.Setenv("RXCHECK_INTERACTIONS", interactions)
	t.Setenv("RXCHECK_INFO", info)
	var stdout, stderr bytes.Buffer

	if code := run(context.Background(), []string{"ASA"}, &stdout, &stderr); code != 0 {
		t.Fatalf("Expected exit code 0, got %d (stderr %s)", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "## Aspirin") {
		t.Errorf("Expected env-configured reference data to resolve ASA, got:\n%s", stdout.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no names", []string{}, 2},
		{"unknown flag", []string{"--nope", "aspirin"}, 2},
		{"no translation offline", []string{"--lang", "fr", "aspirin"}, 2},
		{"help", []string{"--help"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != tt.code {
				t.Errorf("Expected exit code %d, got %d (stderr %s)", tt.code, code, stderr.String())
			}
			if stdout.Len() != 0 {
				t.Errorf("Expected nothing on stdout, got %q", stdout.String())
			}
		})
	}
}
