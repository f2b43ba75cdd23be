package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hlssafe/internal/config"
	"hlssafe/internal/encoding"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckEncoder_Candidate(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	writeStub(t, stub)

	result := CheckEncoder(encoding.NewResolver([]string{stub}, "ffmpeg"))
	if !result.Passed || result.Detail != stub {
		t.Fatalf("expected pass with %q, got %+v", stub, result)
	}
}

func TestCheckEncoder_PathFallback(t *testing.T) {
	bin := t.TempDir()
	writeStub(t, filepath.Join(bin, "ffmpeg"))
	t.Setenv("PATH", bin)

	result := CheckEncoder(encoding.NewResolver([]string{filepath.Join(t.TempDir(), "none")}, "ffmpeg"))
	if !result.Passed || !strings.Contains(result.Detail, "from PATH") {
		t.Fatalf("expected PATH fallback, got %+v", result)
	}
}

func TestCheckEncoder_Missing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	result := CheckEncoder(encoding.NewResolver([]string{filepath.Join(t.TempDir(), "none")}, "ffmpeg"))
	if result.Passed {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Detail, "brew install ffmpeg") {
		t.Fatalf("expected install hint, got %q", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatalf("expected nil, got %v", results)
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	writeStub(t, stub)
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.OutputDir = ""
	cfg.Encoder.Candidates = []string{stub}

	results := RunAll(&cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
}

func TestRunAll_IncludesOutputDirWhenSet(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "missing")
	cfg.Encoder.Candidates = []string{filepath.Join(t.TempDir(), "none")}
	cfg.Encoder.Command = ""

	results := RunAll(&cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 2 {
		t.Fatalf("expected output dir and encoder to fail, got %+v", failed)
	}
	if failed[0].Name != "Output directory" || failed[1].Name != "FFmpeg" {
		t.Fatalf("unexpected failures %+v", failed)
	}
}
