package watch

import (
	"context"
	"log/slog"
	"time"
)

// State is the lifecycle state of a Loop. A loop is Draining once its
// watch-set has lost at least one member.
type State int

const (
	Running State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultInterval is the pause between ticks.
const DefaultInterval = time.Second

// LoopConfig holds the loop's schedule and limits.
type LoopConfig struct {
	Interval time.Duration
	MemLimit float64
	CPULimit float64
}

// Loop runs WatchSet.Tick at a fixed interval until the set is empty.
type Loop struct {
	set   *WatchSet
	cfg   LoopConfig
	log   *slog.Logger
	state State
}

// NewLoop returns a Loop over set. Zero config values take defaults.
func NewLoop(set *WatchSet, cfg LoopConfig, logger *slog.Logger) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MemLimit <= 0 {
		cfg.MemLimit = DefaultMemLimit
	}
	if cfg.CPULimit <= 0 {
		cfg.CPULimit = DefaultCPULimit
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loop{set: set, cfg: cfg, log: logger, state: Running}
}

// State returns the current state.
func (l *Loop) State() State { return l.state }

// Run blocks until the watch-set is empty or ctx is done. It returns
// ctx.Err() in the latter case.
func (l *Loop) Run(ctx context.Context) error {
	if l.set.Len() == 0 {
		l.state = Stopped
		l.log.Info("have no process to watch, watch end")
		return nil
	}

	l.log.Info("watch started", "processes", l.set.Len(), "interval", l.cfg.Interval.String(),
		"mem_limit", l.cfg.MemLimit, "cpu_limit", l.cfg.CPULimit)

	initial := l.set.Len()
	timer := time.NewTimer(l.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.state = Stopped
			return ctx.Err()
		case <-timer.C:
		}

		remaining := l.set.Tick(ctx, l.cfg.MemLimit, l.cfg.CPULimit)
		if remaining == 0 {
			l.state = Stopped
			l.log.Info("have no process to watch, watch end")
			return nil
		}
		if l.state == Running && remaining < initial {
			l.state = Draining
			l.log.Info("watch-set draining", "remaining", remaining, "initial", initial)
		}
		timer.Reset(l.cfg.Interval)
	}
}
