package gui

import (
	"time"

	"github.com/7c/procwatch/internal/logwriter"
	"github.com/7c/procwatch/internal/sample"
	"github.com/7c/procwatch/internal/watch"
)

// Target is one configured process shown on the dashboard.
type Target struct {
	Name string
	PID  int
}

// Options configures the dashboard.
type Options struct {
	Targets  []Target
	Source   sample.Source
	Metrics  watch.Metrics
	MemLimit float64
	CPULimit float64
	Refresh  time.Duration
	// LogFile is tailed in the lower pane when set.
	LogFile string
	// Daemon reports the background watcher's pid, if one is running.
	Daemon func() (int, bool)
}

type row struct {
	target   Target
	snap     sample.Snapshot
	err      error
	decision watch.Decision
}

// sampleMsg carries one refresh worth of data.
type sampleMsg struct {
	at        time.Time
	sysMem    float64
	sysCPU    float64
	metricErr error
	rows      []row
	logLines  []string
	daemonPID int
}

const logTail = 50

// collect samples every target plus the system. It blocks for the CPU
// measurement window, so it runs as a tea.Cmd.
func collect(o Options) sampleMsg {
	msg := sampleMsg{at: time.Now()}

	msg.sysMem, msg.metricErr = o.Metrics.MemoryUtilization()
	if msg.metricErr == nil {
		msg.sysCPU, msg.metricErr = o.Metrics.CPUUtilization()
	}

	msg.rows = make([]row, len(o.Targets))
	for i, t := range o.Targets {
		r := row{target: t}
		r.snap, r.err = o.Source.Lookup(t.PID)
		if r.err == nil && msg.metricErr == nil {
			r.decision = watch.Decide(r.snap, msg.sysMem, msg.sysCPU, o.MemLimit, o.CPULimit)
		}
		msg.rows[i] = r
	}

	if o.LogFile != "" {
		msg.logLines, _ = logwriter.Tail(o.LogFile, logTail)
	}
	if o.Daemon != nil {
		if pid, ok := o.Daemon(); ok {
			msg.daemonPID = pid
		}
	}
	return msg
}
