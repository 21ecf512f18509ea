// Package errorsink implements the error-reporting sink the state machine
// reports to alongside its structured log line (spec.md §4.10 "Failure
// policy": "optionally reported to the error sink").
package errorsink

import (
	"context"

	"github.com/rs/zerolog"
)

// Sink receives a connection-scoped error together with free-form context
// fields. Implementations must not block the caller for long; the state
// machine calls Report synchronously on the failure path.
type Sink interface {
	Report(ctx context.Context, err error, fields map[string]string)
}

// Noop discards every report. cmd/passage always wires Logging; Noop is
// for callers that want no reporting, such as tests.
type Noop struct{}

func (Noop) Report(context.Context, error, map[string]string) {}

// Logging reports by writing an error-level structured log line through
// the teacher's zerolog idiom, in addition to whatever the caller already
// logged — useful for routing failures to a distinct log sink/alert rule
// without a network dependency.
type Logging struct {
	Logger zerolog.Logger
}

func NewLogging(logger zerolog.Logger) Logging {
	return Logging{Logger: logger}
}

func (l Logging) Report(_ context.Context, err error, fields map[string]string) {
	evt := l.Logger.Error().Err(err)
	for k, v := range fields {
		evt = evt.Str(k, v)
	}
	evt.Msg("reported error")
}
