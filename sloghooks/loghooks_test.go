package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/cachenotify"
)

func newBuffered() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestListenerFailedLogsTypeAndError(t *testing.T) {
	l, buf := newBuffered()
	h := New(l, Options{})

	h.ListenerFailed("users", cachenotify.Removed, errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"level=WARN", "cachenotify.listener_failed", "cache=users", "type=REMOVED", "err=boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestSampling(t *testing.T) {
	l, buf := newBuffered()
	h := New(l, Options{ReleaseUnmatchedEvery: 5})

	for i := 0; i < 10; i++ {
		h.ReleaseUnmatched("c")
	}
	if got := strings.Count(buf.String(), "cachenotify.release_unmatched"); got != 2 {
		t.Fatalf("sampled records=%d want 2", got)
	}

	buf.Reset()
	for i := 0; i < 3; i++ {
		h.RemovalSuppressed("c")
	}
	if got := strings.Count(buf.String(), "cachenotify.removal_suppressed"); got != 3 {
		t.Fatalf("unsampled records=%d want 3", got)
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	h := New(nil, Options{})
	h.ListenerFailed("c", cachenotify.Created, errors.New("x"))
	h.RemovalSuppressed("c")
	h.ReleaseUnmatched("c")
	h.WaitWithdrawn("c")
	h.ListenerCloseFailed(errors.New("x"))
}

func TestNotifierReportsThroughHooks(t *testing.T) {
	l, buf := newBuffered()
	n, err := cachenotify.New(cachenotify.Options[string, string]{Hooks: New(l, Options{})})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b := cachenotify.NewBarrier()
	v := "v"
	if err := n.AddWait("users", "k", &v, b); err != nil {
		t.Fatalf("AddWait: %v", err)
	}
	if err := n.RemoveWait("users", "k", &v, b); err != nil {
		t.Fatalf("RemoveWait: %v", err)
	}
	if err := n.NotifyRemoved("users", "k", nil, nil); err != nil {
		t.Fatalf("NotifyRemoved: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "cachenotify.wait_withdrawn") || !strings.Contains(out, "cachenotify.removal_suppressed") {
		t.Fatalf("hooks not reported: %q", out)
	}
}
