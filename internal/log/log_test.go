package log

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestErrorCarriesErrField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := UseLogger(zap.New(core))
	defer restore()

	Error("fetch failed", errors.New("boom"), "id", "feed")

	entries := logs.FilterMessage("fetch failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["err"] != "boom" {
		t.Errorf("err field = %v", ctx["err"])
	}
	if ctx["id"] != "feed" {
		t.Errorf("id field = %v", ctx["id"])
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("level = %s", entries[0].Level)
	}
}
