package sample

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// listingFields is the column count of one listing line; the last column
// is the command and may contain spaces.
const listingFields = 11

// ParseListing extracts the line for pid from process-listing output with
// the columns user, pid, %cpu, %mem, vsz, rss, tty, stat, start, time,
// command.
func ParseListing(pid int, out []byte) (Snapshot, error) {
	want := strconv.Itoa(pid)
	var matches [][]string

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := splitFields(line, listingFields)
		if len(fields) >= 2 && fields[1] == want {
			matches = append(matches, fields)
		}
	}
	if err := scanner.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	switch len(matches) {
	case 0:
		return Snapshot{}, fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	case 1:
	default:
		return Snapshot{}, fmt.Errorf("%w: %d lines for pid %d", ErrAmbiguousOutput, len(matches), pid)
	}

	return parseFields(pid, matches[0])
}

// ParseAll parses every line of process-listing output in the ParseListing
// column layout.
func ParseAll(out []byte) ([]Snapshot, error) {
	var snaps []Snapshot
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := splitFields(line, listingFields)
		pid := 0
		if len(fields) >= 2 {
			pid, _ = strconv.Atoi(fields[1])
		}
		snap, err := parseFields(pid, fields)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return snaps, nil
}

func parseFields(pid int, f []string) (Snapshot, error) {
	if len(f) != listingFields {
		return Snapshot{}, fmt.Errorf("%w: pid %d: %d fields, want %d", ErrMalformedOutput, pid, len(f), listingFields)
	}

	snap := Snapshot{
		User:    f[0],
		TTY:     f[6],
		Stat:    f[7],
		Start:   f[8],
		Time:    f[9],
		Command: f[10],
	}
	var err error
	if snap.PID, err = strconv.Atoi(f[1]); err != nil {
		return Snapshot{}, malformed(pid, "pid", err)
	}
	if snap.CPU, err = strconv.ParseFloat(f[2], 64); err != nil {
		return Snapshot{}, malformed(pid, "cpu", err)
	}
	if snap.Mem, err = strconv.ParseFloat(f[3], 64); err != nil {
		return Snapshot{}, malformed(pid, "mem", err)
	}
	if snap.VSZ, err = strconv.ParseInt(f[4], 10, 64); err != nil {
		return Snapshot{}, malformed(pid, "vsz", err)
	}
	if snap.RSS, err = strconv.ParseInt(f[5], 10, 64); err != nil {
		return Snapshot{}, malformed(pid, "rss", err)
	}
	return snap, nil
}

func malformed(pid int, field string, err error) error {
	return fmt.Errorf("%w: pid %d: %s: %v", ErrMalformedOutput, pid, field, err)
}

// splitFields splits s on whitespace runs into at most n fields. The last
// field keeps its inner whitespace.
func splitFields(s string, n int) []string {
	var out []string
	for len(out) < n-1 {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return out
		}
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return append(out, s)
		}
		out = append(out, s[:end])
		s = s[end:]
	}
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}
