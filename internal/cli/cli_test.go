package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/7c/procwatch/internal/config"
	"github.com/7c/procwatch/internal/sample"
)

type mapSource map[int]sample.Snapshot

func (s mapSource) Lookup(pid int) (sample.Snapshot, error) {
	snap, ok := s[pid]
	if !ok {
		return sample.Snapshot{}, sample.ErrProcessNotFound
	}
	return snap, nil
}

type fixedMetrics struct {
	mem, cpu float64
	err      error
}

func (m fixedMetrics) MemoryUtilization() (float64, error) { return m.mem, m.err }
func (m fixedMetrics) CPUUtilization() (float64, error)    { return m.cpu, m.err }

func TestBuildCheck(t *testing.T) {
	r := &config.Resolved{
		Processes: []config.Process{{Name: "hog", PID: 1}, {Name: "calm", PID: 2}, {Name: "gone", PID: 3}},
		MemLimit:  50,
		CPULimit:  50,
	}
	src := mapSource{
		1: {PID: 1, Mem: 10, CPU: 75},
		2: {PID: 2, Mem: 10, CPU: 5},
	}

	report, err := buildCheck(r, src, fixedMetrics{mem: 40, cpu: 97})
	require.NoError(t, err)
	assert.Equal(t, 97.0, report.SystemCPU)
	require.Len(t, report.Processes, 3)
	assert.Equal(t, "kill", report.Processes[0].Verdict)
	assert.Equal(t, []string{"cpu"}, report.Processes[0].Reasons)
	assert.Equal(t, "keep", report.Processes[1].Verdict)
	assert.Equal(t, "gone", report.Processes[2].Verdict)
	assert.Contains(t, report.Processes[2].Error, "not found")

	_, err = buildCheck(r, src, fixedMetrics{err: errors.New("no proc")})
	assert.ErrorContains(t, err, "no proc")
}

func TestDaemonArgs(t *testing.T) {
	tests := []struct {
		args     []string
		path     string
		isDaemon bool
	}{
		{nil, "", false},
		{[]string{"status"}, "", false},
		{[]string{"--daemon"}, "", true},
		{[]string{"--daemon", "--config", "/etc/pw.yaml"}, "/etc/pw.yaml", true},
		{[]string{"-c", "x.json", "--daemon"}, "x.json", true},
		{[]string{"--config=/tmp/a.json", "--daemon"}, "/tmp/a.json", true},
	}
	for _, tt := range tests {
		path, ok := daemonArgs(tt.args)
		assert.Equal(t, tt.isDaemon, ok, "%v", tt.args)
		assert.Equal(t, tt.path, path, "%v", tt.args)
	}
}

func TestSampleConfigResolves(t *testing.T) {
	t.Setenv("PROCWATCH_HOME", t.TempDir())
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "procwatch.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleConfig), 0o644))
	cfg, err := config.Load(jsonPath)
	require.NoError(t, err)
	r, warnings, err := config.Resolve(cfg, config.Env{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []int{1234, 5678}, r.PIDs())
	assert.NotNil(t, r.Email)
	assert.NotNil(t, r.Webhook)
	assert.Equal(t, "127.0.0.1:8094", r.TelegrafAddr)

	out, err := sampleYAML()
	require.NoError(t, err)
	yamlPath := filepath.Join(dir, "procwatch.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(out), 0o644))
	fromYAML, err := config.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, fromYAML)
}

func TestColorizeLogLine(t *testing.T) {
	plain := "no structure here"
	assert.Equal(t, plain, colorizeLogLine(plain))

	line := `time=2026-10-19T10:00:00.000Z level=ERROR msg="terminate failed" pid=7`
	got := colorizeLogLine(line)
	assert.True(t, strings.HasPrefix(got, "\033[2mtime="), got)
	assert.Contains(t, got, "\033[31mlevel=ERROR")
	assert.Contains(t, got, `msg="terminate failed" pid=7`)
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"run", "start", "stop", "restart", "status", "check", "ps", "top", "logs", "config", "newconfig"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("json"))
}

func TestFilterListing(t *testing.T) {
	snaps := []sample.Snapshot{
		{PID: 3, User: "www", Mem: 5, CPU: 40, RSS: 100, Command: "php-fpm: pool www"},
		{PID: 1, User: "root", Mem: 1, CPU: 0, RSS: 900, Command: "/sbin/init"},
		{PID: 2, User: "www", Mem: 30, CPU: 2, RSS: 500, Command: "php worker"},
	}
	pids := func(ss []sample.Snapshot) []int {
		out := make([]int, len(ss))
		for i, s := range ss {
			out[i] = s.PID
		}
		return out
	}

	got, err := filterListing(snaps, "mem", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 1}, pids(got))

	got, err = filterListing(snaps, "cpu", "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, pids(got))

	got, err = filterListing(snaps, "rss", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, pids(got))

	got, err = filterListing(snaps, "pid", "www", "php", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, pids(got))

	_, err = filterListing(snaps, "name", "", "", 0)
	assert.ErrorContains(t, err, "unknown sort key")
}

func TestConvertINI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchpmc.conf")
	require.NoError(t, os.WriteFile(path, []byte("[PID_LIST]\nweb = 1234\n[PARAMETERS]\nmem_limit = 40\n"), 0o644))

	out, warnings, err := convertINI(path, false)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Contains(t, out, `"web": 1234`)
	assert.Contains(t, out, `"mem_limit": 40`)
	assert.NotContains(t, out, "null")

	// The JSON output loads back as a regular config.
	converted := filepath.Join(t.TempDir(), "procwatch.json")
	require.NoError(t, os.WriteFile(converted, []byte(out), 0o644))
	cfg, err := config.Load(converted)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"web": 1234}, cfg.Processes)

	out, _, err = convertINI(path, true)
	require.NoError(t, err)
	assert.Contains(t, out, "web: 1234")

	bad := filepath.Join(t.TempDir(), "bad.conf")
	require.NoError(t, os.WriteFile(bad, []byte("[PID_LIST]\nweb = 0\n"), 0o644))
	_, _, err = convertINI(bad, false)
	assert.ErrorContains(t, err, "pid must be > 0")
}
