package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToZapLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.DebugLevel,
	}
	for in, want := range cases {
		if got := ToZapLevel(in); got != want {
			t.Fatalf("ToZapLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTeeWritesToBothCores(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Nop().Tee(core).Named("svc")

	l.Infow("hello", "k", "v")
	l.Debugw("dropped")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.LoggerName != "svc" || entry.Message != "hello" {
		t.Fatalf("unexpected entry %+v", entry.Entry)
	}
	if entry.ContextMap()["k"] != "v" {
		t.Fatalf("expected field k=v, got %v", entry.ContextMap())
	}
}
