package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerTo_WritesJSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := WithJobID(WithComponent(NewLoggerTo(&buf, "info"), "session"), "abc")

	logger.Debug("hidden")
	logger.Info("job progress", "progress", 40)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "session" || entry["job_id"] != "abc" || entry["progress"] != float64(40) {
		t.Fatalf("entry = %v", entry)
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("short"); got != "****" {
		t.Errorf("SanitizeToken(short) = %q", got)
	}
	if got := SanitizeToken("abcdef0123456789"); got != "abcd...6789" {
		t.Errorf("SanitizeToken(long) = %q", got)
	}
}
