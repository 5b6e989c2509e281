package sample

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shirou/gopsutil/v4/process"
)

// Lister enumerates every process visible to the caller.
type Lister interface {
	List() ([]Snapshot, error)
}

// List returns a snapshot of every process src can see, ordered by pid.
func List(src Source) ([]Snapshot, error) {
	l, ok := src.(Lister)
	if !ok {
		return nil, fmt.Errorf("%T cannot list processes", src)
	}
	snaps, err := l.List()
	if err != nil {
		return nil, err
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].PID < snaps[j].PID })
	return snaps, nil
}

// List samples every pid. Processes that exit while being read are left
// out; other read failures only surface when nothing could be read.
func (s *NativeSource) List() ([]Snapshot, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, fmt.Errorf("list pids: %w", err)
	}
	snaps := make([]Snapshot, 0, len(pids))
	var errs []error
	for _, pid := range pids {
		snap, err := s.Lookup(int(pid))
		if errors.Is(err, ErrProcessNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snaps = append(snaps, snap)
	}
	if len(snaps) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return snaps, nil
}

// List runs `ps -e` once for all processes.
func (s *PSSource) List() ([]Snapshot, error) {
	out, err := s.run(s.path, "-e", "-ww", "-o", psColumns)
	if err != nil {
		return nil, fmt.Errorf("ps: %w", err)
	}
	return ParseAll(out)
}
