// Package zap adapts a *zap.Logger to cachenotify.Logger.
package zap

import (
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/cachenotify"
)

var _ cachenotify.Logger = Logger{}

// Logger writes notifier records through L. Field keys are emitted in sorted
// order; error values become zap error fields.
type Logger struct{ L *zap.Logger }

// New returns a Logger that tags every record with logger name "cachenotify".
func New(l *zap.Logger) Logger { return Logger{L: l.Named("cachenotify")} }

func (z Logger) Debug(msg string, f cachenotify.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f cachenotify.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f cachenotify.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f cachenotify.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f cachenotify.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for _, k := range slices.Sorted(maps.Keys(f)) {
		switch v := f[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		case string:
			out = append(out, zap.String(k, v))
		case int:
			out = append(out, zap.Int(k, v))
		case bool:
			out = append(out, zap.Bool(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
