package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionInfo(t *testing.T) {
	t.Parallel()

	info := currentVersion()
	for name, got := range map[string]string{
		"version": info.Version,
		"commit":  info.Commit,
		"date":    info.Date,
	} {
		if got == "" {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestShortRevision(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"0123456789abcdef": "0123456",
		"abc":              "abc",
		"":                 "",
	}
	for rev, want := range tests {
		if got := shortRevision(rev); got != want {
			t.Errorf("shortRevision(%q) = %q, want %q", rev, got, want)
		}
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"sourcemapscan version", "commit:", "built:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}
}
