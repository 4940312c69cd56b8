package query

import (
	"time"

	"go.uber.org/zap"

	"civicdesk/internal/observability"
)

// Option configures caches and pools.
type Option func(*options)

type options struct {
	interval time.Duration
	log      *zap.Logger
	metrics  observability.Recorder
}

// WithInterval sets the timed refresh period. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r observability.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.metrics = r
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{interval: DefaultInterval, log: zap.NewNop(), metrics: observability.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
