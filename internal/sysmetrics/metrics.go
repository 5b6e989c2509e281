// Package sysmetrics derives system-wide memory and CPU utilization from
// kernel counters.
package sysmetrics

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMetricsUnavailable is returned when counters cannot be read or parsed.
var ErrMetricsUnavailable = errors.New("system metrics unavailable")

// DefaultWindow separates the two CPU counter reads.
const DefaultWindow = 100 * time.Millisecond

// MemCounters holds memory magnitudes normalized to kB.
type MemCounters struct {
	Total   float64
	Free    float64
	Buffers float64
	Cached  float64
}

// Counters is the source of raw kernel counters.
type Counters interface {
	Memory() (MemCounters, error)
	// CPUTimes returns cumulative time spent per CPU state; index 3 is idle.
	CPUTimes() ([]float64, error)
}

// Sampler computes utilization percentages from a Counters source.
type Sampler struct {
	counters Counters
	window   time.Duration
	sleep    func(time.Duration)
}

// New returns a Sampler reading from c with the default CPU window.
func New(c Counters) *Sampler {
	return &Sampler{counters: c, window: DefaultWindow, sleep: time.Sleep}
}

// NewSystem returns a Sampler over the host's counters.
func NewSystem() *Sampler {
	return New(SystemCounters())
}

// MemoryUtilization returns the percentage of memory that is not free,
// buffered or cached, rounded to two decimals.
func (s *Sampler) MemoryUtilization() (float64, error) {
	m, err := s.counters.Memory()
	if err != nil {
		return 0, unavailable("memory", err)
	}
	if m.Total <= 0 {
		return 0, fmt.Errorf("%w: memory total is %v", ErrMetricsUnavailable, m.Total)
	}
	free := m.Free + m.Buffers + m.Cached
	return round2((1 - free/m.Total) * 100), nil
}

// CPUUtilization samples the CPU time vector twice, one window apart, and
// returns the non-idle share of the elapsed time, rounded to two decimals.
// It blocks for the whole window.
func (s *Sampler) CPUUtilization() (float64, error) {
	total1, idle1, err := s.cpuTimes()
	if err != nil {
		return 0, err
	}
	s.sleep(s.window)
	total2, idle2, err := s.cpuTimes()
	if err != nil {
		return 0, err
	}

	total := total2 - total1
	idle := idle2 - idle1
	if total <= 0 {
		return 0, fmt.Errorf("%w: cpu counters did not advance", ErrMetricsUnavailable)
	}
	return round2((total - idle) / total * 100), nil
}

func (s *Sampler) cpuTimes() (total, idle float64, err error) {
	times, err := s.counters.CPUTimes()
	if err != nil {
		return 0, 0, unavailable("cpu", err)
	}
	if len(times) < 4 {
		return 0, 0, fmt.Errorf("%w: cpu: %d states, need at least 4", ErrMetricsUnavailable, len(times))
	}
	for _, v := range times {
		total += v
	}
	return total, times[3], nil
}

func unavailable(what string, err error) error {
	if errors.Is(err, ErrMetricsUnavailable) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrMetricsUnavailable, what, err)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
