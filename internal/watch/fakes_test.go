package watch

import (
	"context"
	"errors"
	"fmt"

	"github.com/7c/procwatch/internal/sample"
)

type fakeMember struct {
	snap       sample.Snapshot
	updateErr  error
	failAfter  int // Update fails once it has succeeded this many times
	termErr    error
	updates    int
	terminated int
	onUpdate   func()
}

func (f *fakeMember) PID() int                  { return f.snap.PID }
func (f *fakeMember) Snapshot() sample.Snapshot { return f.snap }
func (f *fakeMember) Terminate() error          { f.terminated++; return f.termErr }

func (f *fakeMember) Update() error {
	if f.onUpdate != nil {
		f.onUpdate()
	}
	f.updates++
	if f.failAfter > 0 && f.updates > f.failAfter {
		return errAlways
	}
	return f.updateErr
}

type fakeMetrics struct {
	mem, cpu float64
	err      error
	calls    int
}

func (f *fakeMetrics) MemoryUtilization() (float64, error) {
	f.calls++
	return f.mem, f.err
}

func (f *fakeMetrics) CPUUtilization() (float64, error) { return f.cpu, f.err }

type sentReport struct{ subject, body string }

type fakeNotifier struct {
	sent []sentReport
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, subject, body string) error {
	f.sent = append(f.sent, sentReport{subject, body})
	return f.err
}

type fakeRecorder struct {
	ticks     []TickStats
	evictions []Event
}

func (f *fakeRecorder) EmitTick(s TickStats) { f.ticks = append(f.ticks, s) }
func (f *fakeRecorder) EmitEviction(e Event) { f.evictions = append(f.evictions, e) }

// staticResolver resolves pids to the given members and fails otherwise.
func staticResolver(members map[int]*fakeMember) Resolver {
	return func(pid int) (Member, error) {
		m, ok := members[pid]
		if !ok {
			return nil, fmt.Errorf("%w: pid %d", sample.ErrProcessNotFound, pid)
		}
		return m, nil
	}
}

var errAlways = errors.New("listing failed")
