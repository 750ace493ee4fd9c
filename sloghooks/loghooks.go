package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/cachenotify"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ReleaseUnmatchedEvery  uint64
	RemovalSuppressedEvery uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	unmatchedCtr  atomic.Uint64
	suppressedCtr atomic.Uint64
}

var _ cachenotify.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ListenerFailed(cache string, t cachenotify.EventType, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cachenotify.listener_failed",
		"cache", cache,
		"type", t.String(),
		"err", err)
}

func (h *Hooks) RemovalSuppressed(cache string) {
	if h.l == nil || !sample(h.opts.RemovalSuppressedEvery, &h.suppressedCtr) {
		return
	}
	h.l.Debug("cachenotify.removal_suppressed",
		"cache", cache)
}

func (h *Hooks) ReleaseUnmatched(cache string) {
	if h.l == nil || !sample(h.opts.ReleaseUnmatchedEvery, &h.unmatchedCtr) {
		return
	}
	h.l.Debug("cachenotify.release_unmatched",
		"cache", cache)
}

func (h *Hooks) WaitWithdrawn(cache string) {
	if h.l == nil {
		return
	}
	h.l.Info("cachenotify.wait_withdrawn",
		"cache", cache)
}

func (h *Hooks) ListenerCloseFailed(err error) {
	if h.l == nil {
		return
	}
	h.l.Error("cachenotify.listener_close_failed",
		"err", err)
}
