// Package paths locates procwatch's state directory.
package paths

import (
	"os"
	"path/filepath"
)

// Home returns the procwatch state directory, respecting PROCWATCH_HOME.
func Home() string {
	if h := os.Getenv("PROCWATCH_HOME"); h != "" {
		return h
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return filepath.Join(os.TempDir(), "procwatch")
	}
	return filepath.Join(home, ".procwatch")
}

func PIDFile() string { return filepath.Join(Home(), "procwatch.pid") }
func LogFile() string { return filepath.Join(Home(), "procwatch.log") }

// Expand resolves a leading "~/" against the user's home directory and
// makes the result absolute.
func Expand(p string) string {
	if p == "" {
		return p
	}
	if len(p) >= 2 && p[:2] == "~/" {
		if home, _ := os.UserHomeDir(); home != "" {
			p = filepath.Join(home, p[2:])
		}
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
