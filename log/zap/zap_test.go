package zap

import (
	"errors"
	"iter"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/cachenotify"
)

func TestLoggerWritesSortedTypedFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	boom := errors.New("boom")
	l.Warn("rendezvous release skipped", cachenotify.Fields{"err": boom, "cache": "users", "n": 3})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel || e.LoggerName != "cachenotify" {
		t.Fatalf("unexpected entry %+v", e.Entry)
	}
	keys := make([]string, 0, len(e.Context))
	for _, f := range e.Context {
		keys = append(keys, f.Key)
	}
	if len(keys) != 3 || keys[0] != "cache" || keys[1] != "err" || keys[2] != "n" {
		t.Fatalf("field order=%v", keys)
	}
	m := e.ContextMap()
	if m["cache"] != "users" || m["err"] != "boom" || m["n"] != int64(3) {
		t.Fatalf("context=%v", m)
	}
}

func TestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Logger{L: zap.New(core)}

	l.Debug("dropped", nil)
	l.Info("listener registered", nil)
	l.Error("failed", cachenotify.Fields{})

	if logs.Len() != 2 {
		t.Fatalf("entries=%d want 2", logs.Len())
	}
	if logs.FilterMessage("listener registered").Len() != 1 {
		t.Fatalf("info record missing")
	}
}

func TestNotifierLogsThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n, err := cachenotify.New(cachenotify.Options[string, string]{Logger: New(zap.New(core))})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := n.Register(cachenotify.ListenerConfig[string, string]{Listener: cachenotify.ListenerOf(&listener{})}, false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if logs.FilterMessage("listener registered").Len() != 1 {
		t.Fatalf("registration not logged: %v", logs.All())
	}
}

type listener struct{}

func (*listener) OnCreated(iter.Seq[cachenotify.Event[string, string]]) error { return nil }
