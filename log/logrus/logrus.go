// Package logrus adapts a *logrus.Entry to cachenotify.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/cachenotify"
)

var _ cachenotify.Logger = Logger{}

// Logger writes notifier records through E. An error stored under "err" is
// attached with WithError so formatters render it under logrus.ErrorKey.
type Logger struct{ E *logrus.Entry }

// New returns a Logger whose records carry component=cachenotify.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "cachenotify")}
}

func (l Logger) Debug(msg string, f cachenotify.Fields) { l.entry(f).Debug(msg) }
func (l Logger) Info(msg string, f cachenotify.Fields)  { l.entry(f).Info(msg) }
func (l Logger) Warn(msg string, f cachenotify.Fields)  { l.entry(f).Warn(msg) }
func (l Logger) Error(msg string, f cachenotify.Fields) { l.entry(f).Error(msg) }

func (l Logger) entry(f cachenotify.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	out := make(logrus.Fields, len(f))
	var err error
	for k, v := range f {
		if e, ok := v.(error); ok && k == "err" {
			err = e
			continue
		}
		out[k] = v
	}
	e := l.E.WithFields(out)
	if err != nil {
		e = e.WithError(err)
	}
	return e
}
