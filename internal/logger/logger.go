// Package logger builds the JSON logrus logger shared by every component.
package logger

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a logger that writes one JSON object per line to w.
// Timestamps are rendered in loc under the "ts" key.
func New(w io.Writer, loc *time.Location, level string) *logrus.Logger {
	if loc == nil {
		loc = time.UTC
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&locationFormatter{
		loc: loc,
		inner: &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "ts",
			},
		},
	})
	return l
}

type locationFormatter struct {
	loc   *time.Location
	inner logrus.Formatter
}

func (f *locationFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = e.Time.In(f.loc)
	return f.inner.Format(e)
}
