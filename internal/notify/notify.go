// Package notify delivers eviction reports to the configured sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sink delivers one report.
type Sink interface {
	Send(ctx context.Context, subject, body string) error
}

// LogSink records report subjects in the daemon log.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Send(_ context.Context, subject, body string) error {
	if s.Logger != nil {
		s.Logger.Info("report", "subject", subject, "bytes", len(body))
	}
	return nil
}

// Multi fans a report out to every sink. A failing sink does not stop
// the others; all errors are joined.
type Multi []Sink

func (m Multi) Send(ctx context.Context, subject, body string) error {
	var errs []error
	for i, s := range m {
		if err := s.Send(ctx, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
