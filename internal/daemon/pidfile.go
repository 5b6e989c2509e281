package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/7c/procwatch/internal/sample"
)

var (
	ErrNotRunning     = errors.New("procwatch is not running")
	ErrAlreadyRunning = errors.New("procwatch is already running")
)

// alive reports whether pid exists. Swapped in tests.
var alive = sample.Signals{}.Alive

// ReadPID returns the pid recorded in path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pidfile %s: invalid content %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// WritePID records the current process in path, creating its directory.
func WritePID(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("pidfile dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pidfile: %w", err)
	}
	return nil
}

// Status reports the pid of the running daemon. A pidfile that names a
// dead process or holds garbage is stale and gets removed.
func Status(pidfile string) (int, bool) {
	pid, err := ReadPID(pidfile)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false
	}
	if err != nil || !alive(pid) {
		os.Remove(pidfile)
		return 0, false
	}
	return pid, true
}
