package encoding

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestCandidatesFor(t *testing.T) {
	darwin := candidatesFor("darwin")
	want := []string{"/opt/homebrew/bin/ffmpeg", "/usr/local/bin/ffmpeg", "/usr/bin/ffmpeg"}
	if !slices.Equal(darwin, want) {
		t.Fatalf("darwin candidates = %v, want %v", darwin, want)
	}
	if linux := candidatesFor("linux"); len(linux) == 0 || linux[0] != "/usr/local/bin/ffmpeg" {
		t.Fatalf("unexpected linux candidates %v", linux)
	}
	if win := candidatesFor("windows"); len(win) == 0 || filepath.Ext(win[0]) != ".exe" {
		t.Fatalf("unexpected windows candidates %v", win)
	}
}

func TestResolvePrefersFirstExistingCandidate(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "missing", "ffmpeg")
	second := filepath.Join(dir, "b", "ffmpeg")
	third := filepath.Join(dir, "c", "ffmpeg")
	writeExecutable(t, second)
	writeExecutable(t, third)

	r := NewResolver([]string{first, second, third}, "ffmpeg")
	got, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got != second {
		t.Fatalf("Resolve = %q, want %q", got, second)
	}
}

func TestResolveSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	asDir := filepath.Join(dir, "ffmpeg")
	if err := os.MkdirAll(asDir, 0o755); err != nil {
		t.Fatal(err)
	}
	r := NewResolver([]string{asDir}, "ffmpeg")
	if got, _ := r.Resolve(); got != "ffmpeg" {
		t.Fatalf("directory candidate should be skipped, got %q", got)
	}
}

func TestResolveFallsBackToCommand(t *testing.T) {
	r := NewResolver([]string{filepath.Join(t.TempDir(), "nope")}, " ffmpeg ")
	got, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got != "ffmpeg" {
		t.Fatalf("Resolve = %q, want bare command", got)
	}
}

func TestResolveWithoutCommandReportsNotFound(t *testing.T) {
	r := NewResolver([]string{filepath.Join(t.TempDir(), "nope")}, "")
	if _, err := r.Resolve(); !errors.Is(err, ErrExecutableNotFound) {
		t.Fatalf("expected ErrExecutableNotFound, got %v", err)
	}
}

func TestNewResolverDefaultsCandidates(t *testing.T) {
	r := NewResolver([]string{"", "  "}, DefaultCommand)
	if !slices.Equal(r.Candidates(), DefaultCandidates()) {
		t.Fatalf("expected platform defaults, got %v", r.Candidates())
	}
	if r.Command() != DefaultCommand {
		t.Fatalf("Command = %q", r.Command())
	}
}

func writeExecutable(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
