package logx

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestLoggerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, Debug)
	logger.now = fixedClock

	logger.With("component", "collector").Warn("rcon query failed", "err", "dial tcp: refused", "port", 25575)

	want := `2026-01-02T03:04:05Z level=warn msg="rcon query failed" component=collector err="dial tcp: refused" port=25575` + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("log line got %q want %q", got, want)
	}
}

func TestLoggerFiltersBelowMinimum(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, Warn)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Error("shown")

	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Fatalf("line count got %d want 1: %q", got, buf.String())
	}
}

func TestWithDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWriter(&buf, Info)
	_ = parent.With("k", "v")

	parent.Info("plain")
	if strings.Contains(buf.String(), "k=v") {
		t.Fatalf("parent picked up child fields: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want Level
	}{
		{raw: "debug", want: Debug},
		{raw: " WARNING ", want: Warn},
		{raw: "warn", want: Warn},
		{raw: "error", want: Error},
		{raw: "", want: Info},
		{raw: "verbose", want: Info},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseLevel(tt.raw); got != tt.want {
				t.Fatalf("ParseLevel(%q) got %v want %v", tt.raw, got, tt.want)
			}
		})
	}
}
