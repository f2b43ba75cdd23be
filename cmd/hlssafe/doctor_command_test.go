package main

import (
	"path/filepath"
	"testing"

	"hlssafe/internal/deps"
)

func TestDoctorCommandHealthy(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"doctor"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "Log directory:")
	requireContains(t, stdout, "[OK] "+env.cfg.Encoder.Candidates[0])
	requireContains(t, stdout, "ffmpeg (PATH)")
	requireContains(t, stdout, "*")
}

func TestDoctorCommandReportsMissingEncoder(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("PATH", t.TempDir())

	cfg := *env.cfg
	cfg.Encoder.Candidates = []string{filepath.Join(env.baseDir, "nowhere", "ffmpeg")}
	configPath := filepath.Join(env.baseDir, "missing.toml")
	writeTestConfig(t, configPath, &cfg)

	stdout, _, err := runCLI(t, []string{"doctor"}, env.socketPath, configPath)
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, err.Error(), "1 problem(s)")
	requireContains(t, stdout, "[ERROR]")
	requireContains(t, stdout, "brew install ffmpeg")
}

func TestEncoderRowsMarkSelection(t *testing.T) {
	rows := encoderRows(deps.EncoderReport{
		Candidates: []deps.Status{
			{Command: "/a/ffmpeg"},
			{Command: "/b/ffmpeg", Available: true},
		},
		Fallback: deps.Status{Command: "ffmpeg"},
		Selected: "/b/ffmpeg",
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][3] != "" || rows[1][3] != "*" || rows[2][3] != "" {
		t.Fatalf("unexpected selection marks: %v", rows)
	}
	if rows[1][2] != "yes" || rows[0][2] != "no" {
		t.Fatalf("unexpected presence column: %v", rows)
	}
	if rows[2][1] != "ffmpeg (PATH)" {
		t.Fatalf("fallback row = %v", rows[2])
	}
}
