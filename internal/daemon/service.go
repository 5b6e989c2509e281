package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/7c/procwatch/internal/config"
	"github.com/7c/procwatch/internal/notify"
	"github.com/7c/procwatch/internal/sample"
	"github.com/7c/procwatch/internal/sysmetrics"
	"github.com/7c/procwatch/internal/telemetry"
	"github.com/7c/procwatch/internal/watch"
)

// Components are the collaborators a watch run is built from.
type Components struct {
	Source   sample.Source
	Control  sample.Controller
	Metrics  watch.Metrics
	Notifier watch.Notifier
	Recorder watch.Recorder

	closers []func()
}

// Close releases network resources held by the components.
func (c *Components) Close() {
	for _, f := range c.closers {
		f()
	}
}

// Build wires the components described by r.
func Build(r *config.Resolved, logger *slog.Logger) (*Components, error) {
	src, err := sample.NewSource(r.Source)
	if err != nil {
		return nil, err
	}
	c := &Components{
		Source:   src,
		Control:  sample.Signals{},
		Metrics:  sysmetrics.NewSystem(),
		Notifier: BuildNotifier(r, logger),
	}
	if r.TelegrafAddr != "" {
		tg, err := telemetry.NewTelegrafEmitter(r.TelegrafAddr, r.TelegrafMeas)
		if err != nil {
			return nil, err
		}
		c.Recorder = tg
		c.closers = append(c.closers, tg.Close)
	}
	return c, nil
}

// BuildNotifier fans reports out to the log and every configured sink.
func BuildNotifier(r *config.Resolved, logger *slog.Logger) notify.Sink {
	sinks := notify.Multi{notify.LogSink{Logger: logger}}
	if r.Email != nil {
		if s, err := notify.NewSMTPSink(*r.Email); err != nil {
			logger.Warn("mail reports disabled", "error", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if r.Webhook != nil {
		sinks = append(sinks, notify.NewWebhookSink(*r.Webhook, logger))
	}
	return sinks
}

// Watch runs the monitor loop over r's processes until none are left or
// ctx is cancelled. Cancellation is not an error.
func Watch(ctx context.Context, r *config.Resolved, c *Components, logger *slog.Logger) error {
	set := watch.NewWatchSet(r.PIDs(), watch.Options{
		Resolve:  watch.SourceResolver(c.Source, c.Control),
		Metrics:  c.Metrics,
		Notifier: c.Notifier,
		Recorder: c.Recorder,
		Logger:   logger,
		Host:     watch.LocalHost(),
	})
	loop := watch.NewLoop(set, watch.LoopConfig{
		Interval: r.Interval,
		MemLimit: r.MemLimit,
		CPULimit: r.CPULimit,
	}, logger)

	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
