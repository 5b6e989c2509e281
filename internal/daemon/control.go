package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/7c/procwatch/internal/config"
)

const (
	startTimeout = 5 * time.Second
	stopTimeout  = 10 * time.Second
	pollEvery    = 50 * time.Millisecond
)

// Start launches a detached copy of the running binary in daemon mode and
// waits for it to record its pid in r.PIDFile.
func Start(r *config.Resolved) (int, error) {
	pidfile := r.PIDFile
	if pid, ok := Status(pidfile); ok {
		return pid, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	self, err := executable(os.Executable, filepath.EvalSymlinks)
	if err != nil {
		return 0, err
	}

	cmd, err := daemonCommand(self, r)
	if err != nil {
		return 0, err
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	defer devnull.Close()
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	child := cmd.Process.Pid

	// Reap the child if it exits early so it can be told apart from a
	// slow start.
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	deadline := time.Now().Add(startTimeout)
	for time.Now().Before(deadline) {
		if pid, err := ReadPID(pidfile); err == nil && pid == child {
			return pid, nil
		}
		select {
		case err := <-exited:
			return 0, fmt.Errorf("daemon exited during startup (%v); see the log file", err)
		case <-time.After(pollEvery):
		}
	}
	return 0, fmt.Errorf("daemon did not write %s within %s", pidfile, startTimeout)
}

// executable locates the running binary, following symlinks when they
// resolve.
func executable(self func() (string, error), eval func(string) (string, error)) (string, error) {
	path, err := self()
	if err != nil {
		return "", fmt.Errorf("cannot find procwatch binary: %w", err)
	}
	if resolved, err := eval(path); err == nil {
		path = resolved
	}
	return path, nil
}

// daemonCommand builds the detached child: its own session, the configured
// working directory and, when daemon.user or daemon.group differ from the
// caller, their credentials.
func daemonCommand(self string, r *config.Resolved) (*exec.Cmd, error) {
	args := []string{"--daemon"}
	if r.Path != "" {
		args = append(args, "--config", r.Path)
	}
	cmd := exec.Command(self, args...)
	cmd.Env = os.Environ()
	cmd.Dir = r.WorkDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if c := r.RunAs; c != nil && (int(c.UID) != os.Geteuid() || int(c.GID) != os.Getegid()) {
		if os.Geteuid() != 0 {
			return nil, fmt.Errorf("daemon.user/daemon.group need root to switch to uid %d gid %d", c.UID, c.GID)
		}
		cmd.SysProcAttr.Credential = &syscall.Credential{Uid: c.UID, Gid: c.GID}
	}
	return cmd, nil
}

// Stop sends SIGTERM to the daemon and waits for it to exit.
func Stop(pidfile string) (int, error) {
	pid, ok := Status(pidfile)
	if !ok {
		return 0, ErrNotRunning
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil && err != unix.ESRCH {
		return pid, fmt.Errorf("signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if !alive(pid) {
			os.Remove(pidfile)
			return pid, nil
		}
		time.Sleep(pollEvery)
	}
	return pid, fmt.Errorf("pid %d still running after %s", pid, stopTimeout)
}

// Restart stops a running daemon, if any, and starts a new one.
func Restart(r *config.Resolved) (int, error) {
	if _, err := Stop(r.PIDFile); err != nil && err != ErrNotRunning {
		return 0, err
	}
	return Start(r)
}
