package loggen

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultInterval  = 1 * time.Second
	DefaultProcedure = "generate_logg"
)

type Options struct {
	Enabled bool
	// Interval is the minimum delay between the end of one cycle and the start of the next.
	Interval time.Duration
	// CycleTimeout bounds a single cycle. Zero means no bound.
	CycleTimeout time.Duration
	// Procedure is "name" or "schema.name" of the zero-argument generation routine.
	Procedure string

	Logger *logrus.Entry
}

func (o *Options) setDefaults() {
	if o.Interval == 0 {
		o.Interval = DefaultInterval
	}
	if o.Procedure == "" {
		o.Procedure = DefaultProcedure
	}
	if o.Logger == nil {
		o.Logger = logrusNop()
	}
}

func logrusNop() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
