package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// consoleTimestampLayout keeps milliseconds so daemon events can be lined up
// against ffmpeg progress output.
const consoleTimestampLayout = "2006-01-02 15:04:05.000"

func consoleTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleTimestampLayout)
}

// headerText renders a value promoted into the header line, unquoted.
func headerText(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

// jobLabel trims a job UUID to its first block.
func jobLabel(id string) string {
	id = strings.TrimSpace(id)
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

// consoleValue renders one attribute for the indented list under a record.
func consoleValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case key == FieldCommand || strings.HasSuffix(key, "."+FieldCommand):
		// Already shell-quoted; quoting again would make it uncopyable.
		return v.String()
	case key == FieldJobID || strings.HasSuffix(key, "."+FieldJobID):
		return jobLabel(headerText(v))
	}

	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return elapsedText(v.Duration())
	case slog.KindTime:
		return consoleTimestamp(v.Time())
	default:
		return quoteIfNeeded(headerText(v))
	}
}

// elapsedText rounds encode durations to what a reader can use.
func elapsedText(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
