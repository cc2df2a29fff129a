// Package logrus adapts a *logrus.Entry to querysync.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/thomasjacksonsantos/querysync"
)

var _ querysync.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "querysync")}
}

func (l Logger) Debug(msg string, f querysync.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f querysync.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f querysync.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f querysync.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f querysync.Fields) *logrus.Entry {
	e := l.E
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		e = e.WithField(k, v)
	}
	return e
}
