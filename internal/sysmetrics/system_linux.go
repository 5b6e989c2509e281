//go:build linux

package sysmetrics

// SystemCounters returns the counters source for this host.
func SystemCounters() Counters {
	return ProcFS{Root: "/proc"}
}
