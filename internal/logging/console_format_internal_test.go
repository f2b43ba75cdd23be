package logging

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestConsoleValue(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value slog.Value
		want  string
	}{
		{"plain string", "binary", slog.StringValue("/usr/bin/ffmpeg"), "/usr/bin/ffmpeg"},
		{"path with space", "output", slog.StringValue("/tmp/out dir/a.mp4"), `"/tmp/out dir/a.mp4"`},
		{"empty", "reason", slog.StringValue(""), `""`},
		{"command stays shell-quoted", FieldCommand, slog.StringValue("ffmpeg -i '/m/a b.mp4'"), "ffmpeg -i '/m/a b.mp4'"},
		{"nested job id", "ipc." + FieldJobID, slog.StringValue("3f2a9c1e-0000-4000-8000-000000000000"), "3f2a9c1e"},
		{"elapsed minutes", "elapsed", slog.DurationValue(90*time.Second + 400*time.Millisecond), "1m30s"},
		{"elapsed seconds", "elapsed", slog.DurationValue(2345678 * time.Microsecond), "2.35s"},
		{"short duration", "elapsed", slog.DurationValue(750 * time.Microsecond), "750µs"},
		{"error", "error", slog.AnyValue(errors.New("exit status 1")), `"exit status 1"`},
		{"missed chunks", "missed", slog.Int64Value(3), "3"},
	}
	for _, tt := range tests {
		if got := consoleValue(tt.key, tt.value); got != tt.want {
			t.Errorf("%s: consoleValue = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestJobLabel(t *testing.T) {
	if got := jobLabel(" 3f2a9c1e-0000-4000-8000-000000000000 "); got != "3f2a9c1e" {
		t.Fatalf("jobLabel = %q", got)
	}
	if got := jobLabel("plain"); got != "plain" {
		t.Fatalf("jobLabel without dashes = %q", got)
	}
}

func TestConsoleTimestampKeepsMilliseconds(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 89_000_000, time.Local)
	if got := consoleTimestamp(ts); got != "2026-03-04 05:06:07.089" {
		t.Fatalf("consoleTimestamp = %q", got)
	}
	if consoleTimestamp(time.Time{}) != "" {
		t.Fatal("zero time should render empty")
	}
}
