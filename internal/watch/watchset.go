// Package watch samples a set of processes and evicts the ones that
// exceed their limits while the system is under pressure.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/7c/procwatch/internal/sample"
)

// Member is one watched process.
type Member interface {
	PID() int
	Update() error
	Snapshot() sample.Snapshot
	Terminate() error
}

// Resolver turns a configured pid into a Member.
type Resolver func(pid int) (Member, error)

// Metrics provides system-wide utilization percentages.
type Metrics interface {
	MemoryUtilization() (float64, error)
	CPUUtilization() (float64, error)
}

// Notifier delivers a rendered eviction report.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Recorder receives per-tick and per-eviction measurements.
type Recorder interface {
	EmitTick(stats TickStats)
	EmitEviction(e Event)
}

// TickStats summarizes one tick.
type TickStats struct {
	SystemMem float64
	SystemCPU float64
	Watched   int
	Evicted   int
	Dropped   int
}

// Options wires a WatchSet to its collaborators. Resolve and Metrics are
// required; the rest fall back to no-ops.
type Options struct {
	Resolve  Resolver
	Metrics  Metrics
	Notifier Notifier
	Recorder Recorder
	Logger   *slog.Logger
	Host     HostInfo
	Now      func() time.Time
}

// WatchSet owns the watched processes. It is not safe for concurrent use;
// the monitor loop is its only caller.
type WatchSet struct {
	members []Member
	opts    Options
	log     *slog.Logger
}

// SourceResolver resolves pids through a sample.Source.
func SourceResolver(src sample.Source, ctl sample.Controller) Resolver {
	return func(pid int) (Member, error) {
		p, err := sample.Resolve(src, ctl, pid)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// NewWatchSet resolves every pid. Pids that fail to resolve are logged and
// left out; duplicates become independent members.
func NewWatchSet(pids []int, opts Options) *WatchSet {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	w := &WatchSet{opts: opts, log: opts.Logger}
	for _, pid := range pids {
		m, err := opts.Resolve(pid)
		if err != nil {
			w.log.Error("cannot watch process", "pid", pid, "error", err)
			continue
		}
		w.log.Info("watching process", "pid", pid, "cmd", m.Snapshot().Command)
		w.members = append(w.members, m)
	}
	return w
}

// Len returns the number of members.
func (w *WatchSet) Len() int { return len(w.members) }

// Members returns the current snapshot of every member.
func (w *WatchSet) Members() []sample.Snapshot {
	out := make([]sample.Snapshot, 0, len(w.members))
	for _, m := range w.members {
		out = append(out, m.Snapshot())
	}
	return out
}

// Tick refreshes every member, evicts the ones the policy selects and
// drops the ones that can no longer be read. System metrics are read at
// most once per tick. Removals are applied after the pass. It returns the
// remaining member count.
func (w *WatchSet) Tick(ctx context.Context, memLimit, cpuLimit float64) int {
	members := w.members
	drop := make([]bool, len(members))
	stats := TickStats{}

	var (
		sysMem, sysCPU float64
		metricsRead    bool
		metricsOK      bool
	)

	for i, m := range members {
		if err := m.Update(); err != nil {
			w.log.Error("dropping process", "pid", m.PID(), "error", err)
			drop[i] = true
			stats.Dropped++
			continue
		}

		if !metricsRead {
			metricsRead = true
			sysMem, sysCPU, metricsOK = w.systemMetrics()
			stats.SystemMem, stats.SystemCPU = sysMem, sysCPU
		}
		if !metricsOK {
			continue
		}

		snap := m.Snapshot()
		d := Decide(snap, sysMem, sysCPU, memLimit, cpuLimit)
		w.log.Debug("evaluated process", "pid", snap.PID, "mem", snap.Mem, "cpu", snap.CPU,
			"system_mem", sysMem, "system_cpu", sysCPU, "verdict", d.Verdict.String())
		if d.Verdict != Kill {
			continue
		}

		w.evict(ctx, m, snap, d, sysMem, sysCPU)
		drop[i] = true
		stats.Evicted++
	}

	kept := make([]Member, 0, len(members))
	for i, m := range members {
		if !drop[i] {
			kept = append(kept, m)
		}
	}
	w.members = kept

	stats.Watched = len(w.members)
	if w.opts.Recorder != nil && metricsOK {
		w.opts.Recorder.EmitTick(stats)
	}
	return len(w.members)
}

func (w *WatchSet) systemMetrics() (sysMem, sysCPU float64, ok bool) {
	sysMem, err := w.opts.Metrics.MemoryUtilization()
	if err != nil {
		w.log.Error("skipping evictions this tick", "error", err)
		return 0, 0, false
	}
	sysCPU, err = w.opts.Metrics.CPUUtilization()
	if err != nil {
		w.log.Error("skipping evictions this tick", "error", err)
		return 0, 0, false
	}
	return sysMem, sysCPU, true
}

func (w *WatchSet) evict(ctx context.Context, m Member, snap sample.Snapshot, d Decision, sysMem, sysCPU float64) {
	termErr := m.Terminate()
	if termErr != nil {
		w.log.Error("terminate failed", "pid", snap.PID, "error", termErr)
	} else {
		w.log.Info("kill", "pid", snap.PID, "cmd", snap.Command, "mem", snap.Mem, "cpu", snap.CPU,
			"reasons", d.Reasons())
	}

	e := newEvent(snap, d, sysMem, sysCPU, w.opts.Host, w.opts.Now(), termErr)
	if w.opts.Recorder != nil {
		w.opts.Recorder.EmitEviction(e)
	}
	if w.opts.Notifier == nil {
		return
	}
	body, err := RenderReport(e)
	if err != nil {
		w.log.Error("cannot render report", "pid", snap.PID, "error", err)
		return
	}
	if err := w.opts.Notifier.Send(ctx, e.Subject(), body); err != nil {
		w.log.Error("cannot send report", "pid", snap.PID, "event", e.ID.String(), "error", err)
	}
}
