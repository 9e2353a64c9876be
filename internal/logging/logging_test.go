package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		" WARN ":   zerolog.WarnLevel,
		"nonsense": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestJSONLoggerAndCronAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := Component(newLogger(&buf, "debug", "json"), "scheduler")

	CronLogger(l).Error(errors.New("boom"), "panic", "entry", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["component"] != "scheduler" || entry["err"] != "boom" || entry["message"] != "panic" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["entry"] != float64(3) {
		t.Fatalf("key/value pair not forwarded: %v", entry)
	}
}
