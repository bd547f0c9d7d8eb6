package logging

import (
	"log/slog"
	"testing"
	"time"
)

func TestLevelFromEnv(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for value, want := range cases {
		t.Setenv(levelEnv, value)
		if got := levelFromEnv(); got != want {
			t.Errorf("level %q: got %v, want %v", value, got, want)
		}
	}
}

func TestRenameAttrMapsCoreKeys(t *testing.T) {
	if got := renameAttr(nil, slog.Time(slog.TimeKey, time.Unix(0, 0))); got.Key != "timestamp" {
		t.Fatalf("time key: got %q", got.Key)
	}
	if got := renameAttr(nil, slog.Any(slog.LevelKey, slog.LevelWarn)); got.Key != "severity" || got.Value.String() != "WARN" {
		t.Fatalf("level attr: %q=%q", got.Key, got.Value.String())
	}
	if got := renameAttr(nil, slog.String(slog.MessageKey, "hello")); got.Key != "message" {
		t.Fatalf("message key: got %q", got.Key)
	}
	if got := renameAttr(nil, slog.String("custom", "v")); got.Key != "custom" {
		t.Fatalf("custom key: got %q", got.Key)
	}
}
