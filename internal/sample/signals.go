package sample

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Signals controls processes with kill(2).
type Signals struct{}

func (Signals) SendTerm(pid int) error {
	err := unix.Kill(pid, unix.SIGTERM)
	if errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	}
	return err
}

// Alive reports whether pid exists, including processes owned by other
// users.
func (Signals) Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
