// Package zap adapts a *zap.Logger to querysync.Logger.
package zap

import (
	"go.uber.org/zap"

	"github.com/thomasjacksonsantos/querysync"
)

var _ querysync.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names the logger "querysync" so its lines are easy to filter.
func New(l *zap.Logger) Logger { return Logger{L: l.Named("querysync")} }

func (z Logger) Debug(msg string, f querysync.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f querysync.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f querysync.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f querysync.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f querysync.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			out = append(out, zap.Error(err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
