package sample

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// psColumns mirrors the columns of `ps aux` without headers.
const psColumns = "user=,pid=,%cpu=,%mem=,vsz=,rss=,tty=,stat=,start_time=,time=,args="

// PSSource reads snapshots by running ps(1).
type PSSource struct {
	path string
	run  func(name string, args ...string) ([]byte, error)
}

// NewPSSource locates ps on PATH. A missing binary is reported as
// ErrExecutableNotFound.
func NewPSSource() (*PSSource, error) {
	path, err := exec.LookPath("ps")
	if err != nil {
		return nil, fmt.Errorf("%w: ps: %v", ErrExecutableNotFound, err)
	}
	return &PSSource{path: path, run: runOutput}, nil
}

func (s *PSSource) Lookup(pid int) (Snapshot, error) {
	out, err := s.run(s.path, "-ww", "-o", psColumns, "-p", strconv.Itoa(pid))
	if err != nil {
		// ps exits non-zero when -p matches nothing.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(bytes.TrimSpace(out)) == 0 {
			return Snapshot{}, fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
		}
		return Snapshot{}, fmt.Errorf("ps pid %d: %w", pid, err)
	}
	return ParseListing(pid, out)
}

func runOutput(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}
