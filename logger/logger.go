// Package logger builds the process wide logr.Logger, backed by zerolog.
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
)

var (
	defaultLogger logr.Logger
	mu            sync.RWMutex
)

func init() {
	SetDefault(New())
}

// Options control the zerolog sink. Verbosity 0 keeps info and errors,
// rejected commands are logged at 1.
type Options struct {
	Output    io.Writer
	Verbosity int
	Service   string
	Caller    bool
	Timestamp bool
}

type Option func(*Options)

func WithVerbosity(level int) Option {
	return func(o *Options) {
		o.Verbosity = level
	}
}

func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// WithService stamps every line with the service name.
func WithService(name string) Option {
	return func(o *Options) {
		o.Service = name
	}
}

// WithCaller adds the file:line of the logging call.
func WithCaller(enabled bool) Option {
	return func(o *Options) {
		o.Caller = enabled
	}
}

func WithoutTimestamp() Option {
	return func(o *Options) {
		o.Timestamp = false
	}
}

func New(opts ...Option) logr.Logger {
	o := Options{Output: os.Stderr, Timestamp: true}
	for _, opt := range opts {
		opt(&o)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerologr.SetMaxV(o.Verbosity)
	zlc := zerolog.New(o.Output).With()
	if o.Service != "" {
		zlc = zlc.Str("service", o.Service)
	}
	if o.Caller {
		zlc = zlc.Caller()
	}
	if o.Timestamp {
		zlc = zlc.Timestamp()
	}
	zl := zlc.Logger()

	return zerologr.New(&zl)
}

func SetDefault(log logr.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = log
}

func Discard() logr.Logger {
	return logr.Discard()
}

func Default() logr.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// FromContext returns the request scoped logger, falling back to Default.
func FromContext(ctx context.Context) logr.Logger {
	if log, err := logr.FromContext(ctx); err == nil {
		return log
	}
	return Default()
}

func NewContext(ctx context.Context, log logr.Logger) context.Context {
	return logr.NewContext(ctx, log)
}
