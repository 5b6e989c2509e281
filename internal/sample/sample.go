// Package sample resolves process ids into resource snapshots and
// terminates them on request. Signals go through kill(2), so the package,
// like the rest of procwatch, targets unix systems.
package sample

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrProcessNotFound    = errors.New("process not found")
	ErrAmbiguousOutput    = errors.New("ambiguous process listing")
	ErrMalformedOutput    = errors.New("malformed process listing")
	ErrExecutableNotFound = errors.New("executable not found")
	ErrStillAlive         = errors.New("process still alive")
)

// Snapshot is a point-in-time view of one process, in the column layout of
// `ps aux`. VSZ and RSS are in KiB.
type Snapshot struct {
	PID     int     `json:"pid"`
	User    string  `json:"user"`
	CPU     float64 `json:"cpu"`
	Mem     float64 `json:"mem"`
	VSZ     int64   `json:"vsz"`
	RSS     int64   `json:"rss"`
	TTY     string  `json:"tty"`
	Stat    string  `json:"stat"`
	Start   string  `json:"start"`
	Time    string  `json:"time"`
	Command string  `json:"cmd"`
}

// Source looks up the current snapshot of a single pid.
type Source interface {
	Lookup(pid int) (Snapshot, error)
}

// Controller delivers termination signals.
type Controller interface {
	// SendTerm sends SIGTERM. A process that no longer exists yields
	// an error wrapping ErrProcessNotFound.
	SendTerm(pid int) error
	Alive(pid int) bool
}

const (
	defaultTerminateTimeout = 5 * time.Second
	defaultTerminatePause   = 50 * time.Millisecond
)

// Process is a watched process. Its snapshot is replaced as a whole on
// every Update.
type Process struct {
	pid  int
	snap Snapshot
	src  Source
	ctl  Controller

	termTimeout time.Duration
	termPause   time.Duration
}

// Resolve looks up pid through src. A nil ctl uses OS signals.
func Resolve(src Source, ctl Controller, pid int) (*Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("%w: invalid pid %d", ErrProcessNotFound, pid)
	}
	if ctl == nil {
		ctl = Signals{}
	}
	p := &Process{
		pid:         pid,
		src:         src,
		ctl:         ctl,
		termTimeout: defaultTerminateTimeout,
		termPause:   defaultTerminatePause,
	}
	if err := p.Update(); err != nil {
		return nil, err
	}
	return p, nil
}

// PID returns the process id.
func (p *Process) PID() int { return p.pid }

// Update re-reads the process and replaces every field.
func (p *Process) Update() error {
	snap, err := p.src.Lookup(p.pid)
	if err != nil {
		return err
	}
	p.snap = snap
	return nil
}

// Snapshot returns a copy of the current fields.
func (p *Process) Snapshot() Snapshot { return p.snap }

// Terminate sends SIGTERM until the process is gone. It does not escalate
// to SIGKILL; after the timeout it gives up with ErrStillAlive.
func (p *Process) Terminate() error {
	deadline := time.Now().Add(p.termTimeout)
	for {
		if err := p.ctl.SendTerm(p.pid); err != nil {
			if errors.Is(err, ErrProcessNotFound) {
				return nil
			}
			return fmt.Errorf("terminate pid %d: %w", p.pid, err)
		}
		if !p.ctl.Alive(p.pid) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: pid %d after %s", ErrStillAlive, p.pid, p.termTimeout)
		}
		time.Sleep(p.termPause)
	}
}

func (p *Process) String() string {
	return fmt.Sprintf("Process(pid=%d, cmd=%q)", p.pid, p.snap.Command)
}
