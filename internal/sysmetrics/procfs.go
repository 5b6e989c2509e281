package sysmetrics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ProcFS reads counters from a procfs mount.
type ProcFS struct {
	Root string // usually "/proc"
}

func (p ProcFS) Memory() (MemCounters, error) {
	f, err := os.Open(filepath.Join(p.Root, "meminfo"))
	if err != nil {
		return MemCounters{}, err
	}
	defer f.Close()
	return parseMemInfo(f)
}

func (p ProcFS) CPUTimes() ([]float64, error) {
	f, err := os.Open(filepath.Join(p.Root, "stat"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCPUStat(f)
}

// unitScale converts meminfo magnitudes to kB.
var unitScale = map[string]float64{
	"kB": 1,
	"mB": 1024,
	"gB": 1024 * 1024,
}

// parseMemInfo extracts MemTotal, MemFree, Buffers and Cached from
// /proc/meminfo formatted text.
func parseMemInfo(r io.Reader) (MemCounters, error) {
	var m MemCounters
	targets := map[string]*float64{
		"MemTotal": &m.Total,
		"MemFree":  &m.Free,
		"Buffers":  &m.Buffers,
		"Cached":   &m.Cached,
	}
	seen := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		dst, wanted := targets[strings.TrimSpace(key)]
		if !wanted {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return MemCounters{}, fmt.Errorf("%w: meminfo %s: expected value and unit, got %q", ErrMetricsUnavailable, key, rest)
		}
		scale, known := unitScale[fields[1]]
		if !known {
			return MemCounters{}, fmt.Errorf("%w: meminfo %s: undefined unit %q", ErrMetricsUnavailable, key, fields[1])
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return MemCounters{}, fmt.Errorf("%w: meminfo %s: %v", ErrMetricsUnavailable, key, err)
		}
		*dst = v * scale
		seen++
	}
	if err := scanner.Err(); err != nil {
		return MemCounters{}, err
	}
	if seen < len(targets) {
		return MemCounters{}, fmt.Errorf("%w: meminfo: found %d of %d counters", ErrMetricsUnavailable, seen, len(targets))
	}
	return m, nil
}

// parseCPUStat returns the aggregate "cpu" line of /proc/stat as floats.
func parseCPUStat(r io.Reader) ([]float64, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty stat", ErrMetricsUnavailable)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return nil, fmt.Errorf("%w: invalid cpu line %q", ErrMetricsUnavailable, scanner.Text())
	}
	times := make([]float64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cpu field %q: %v", ErrMetricsUnavailable, f, err)
		}
		times = append(times, v)
	}
	return times, nil
}
