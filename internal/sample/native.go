package sample

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// NativeSource reads snapshots through the OS process API instead of
// parsing ps output.
type NativeSource struct {
	now func() time.Time
}

func NewNativeSource() *NativeSource {
	return &NativeSource{now: time.Now}
}

func (s *NativeSource) Lookup(pid int) (Snapshot, error) {
	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return Snapshot{}, fmt.Errorf("lookup pid %d: %w", pid, err)
	}
	if !exists {
		return Snapshot{}, fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return Snapshot{}, fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
		}
		return Snapshot{}, fmt.Errorf("lookup pid %d: %w", pid, err)
	}

	cpuPct, err := p.CPUPercent()
	if err != nil {
		return Snapshot{}, s.readError(pid, "cpu", err)
	}
	memPct, err := p.MemoryPercent()
	if err != nil {
		return Snapshot{}, s.readError(pid, "mem", err)
	}
	mi, err := p.MemoryInfo()
	if err != nil {
		return Snapshot{}, s.readError(pid, "memory info", err)
	}

	snap := Snapshot{
		PID:  pid,
		User: "?",
		CPU:  round1(cpuPct),
		Mem:  round1(float64(memPct)),
		VSZ:  int64(mi.VMS / 1024),
		RSS:  int64(mi.RSS / 1024),
		TTY:  "?",
		Stat: "?",
	}
	if user, err := p.Username(); err == nil && user != "" {
		snap.User = user
	}
	if tty, err := p.Terminal(); err == nil && tty != "" {
		snap.TTY = strings.TrimPrefix(strings.TrimPrefix(tty, "/dev"), "/")
	}
	if status, err := p.Status(); err == nil && len(status) > 0 {
		snap.Stat = statCode(status[0])
	}
	if ms, err := p.CreateTime(); err == nil {
		snap.Start = formatStart(time.UnixMilli(ms), s.now())
	}
	if t, err := p.Times(); err == nil {
		snap.Time = formatCPUTime(t.User + t.System)
	}
	snap.Command, _ = p.Cmdline()
	if snap.Command == "" {
		name, _ := p.Name()
		snap.Command = "[" + name + "]"
	}
	return snap, nil
}

// readError reports a vanished process as ErrProcessNotFound.
func (s *NativeSource) readError(pid int, what string, err error) error {
	if exists, _ := process.PidExists(int32(pid)); !exists {
		return fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	}
	return fmt.Errorf("read %s of pid %d: %w", what, pid, err)
}

var statCodes = map[string]string{
	"running": "R",
	"sleep":   "S",
	"idle":    "I",
	"stop":    "T",
	"zombie":  "Z",
	"wait":    "W",
	"lock":    "L",
	"blocked": "D",
}

func statCode(status string) string {
	if c, ok := statCodes[status]; ok {
		return c
	}
	return "?"
}

// formatStart follows the ps start_time column: HH:MM today, MmmDD this
// year, the year otherwise.
func formatStart(start, now time.Time) string {
	switch {
	case start.YearDay() == now.YearDay() && start.Year() == now.Year():
		return start.Format("15:04")
	case start.Year() == now.Year():
		return start.Format("Jan02")
	default:
		return start.Format("2006")
	}
}

func formatCPUTime(seconds float64) string {
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
