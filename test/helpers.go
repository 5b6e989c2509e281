package test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

// TestEnv sets up an isolated procwatch environment per test.
// Each test gets its own PROCWATCH_HOME so pidfiles and logs never collide.
type TestEnv struct {
	T            *testing.T
	Home         string
	ProcwatchBin string
	TestappBin   string
	config       string
	apps         []*exec.Cmd
}

// NewTestEnv creates an isolated test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	home := t.TempDir()

	procwatchBin := filepath.Join(BinDir(), "procwatch")
	testappBin := filepath.Join(BinDir(), "testapp")
	requireFile(t, procwatchBin, "run: go build -o test/bin/procwatch .")
	requireFile(t, testappBin, "run: go build -o test/bin/testapp ./test/testapp/")

	env := &TestEnv{
		T:            t,
		Home:         home,
		ProcwatchBin: procwatchBin,
		TestappBin:   testappBin,
	}
	t.Cleanup(env.Cleanup)
	return env
}

// BinDir returns the path to the test binary directory.
func BinDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "bin")
}

// Procwatch runs a procwatch CLI command against the env's config and
// returns stdout, stderr, exit code.
func (e *TestEnv) Procwatch(args ...string) (stdout, stderr string, exitCode int) {
	if e.config != "" {
		args = append(args, "--config", e.config)
	}
	cmd := exec.Command(e.ProcwatchBin, args...)
	cmd.Env = append(cleanEnv(), "PROCWATCH_HOME="+e.Home)
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	exitCode = 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		exitCode = -1
	}
	return outBuf.String(), errBuf.String(), exitCode
}

// MustProcwatch runs procwatch and fails the test if exit code != 0.
func (e *TestEnv) MustProcwatch(args ...string) string {
	e.T.Helper()
	stdout, stderr, code := e.Procwatch(args...)
	if code != 0 {
		e.T.Fatalf("procwatch %v failed (exit %d):\nstdout: %s\nstderr: %s",
			args, code, stdout, stderr)
	}
	return stdout
}

// StartApp launches testapp with the given flags and waits until it has
// written its pid.
func (e *TestEnv) StartApp(args ...string) int {
	e.T.Helper()
	ready := filepath.Join(e.Home, "ready-"+strconv.Itoa(len(e.apps)))
	cmd := exec.Command(e.TestappBin, append([]string{"--ready-file", ready}, args...)...)
	if err := cmd.Start(); err != nil {
		e.T.Fatalf("start testapp: %v", err)
	}
	e.apps = append(e.apps, cmd)
	go cmd.Wait() //nolint:errcheck // reaps the child so it never lingers as a zombie

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(ready); err == nil && len(data) > 0 {
			return cmd.Process.Pid
		}
		time.Sleep(50 * time.Millisecond)
	}
	e.T.Fatalf("testapp did not become ready within 5s")
	return 0
}

// WriteConfig writes a JSON config watching procs with a one second
// interval and makes it the config for every later Procwatch call.
func (e *TestEnv) WriteConfig(procs map[string]int) string {
	e.T.Helper()
	cfg := map[string]any{
		"processes":  procs,
		"parameters": map[string]any{"interval": 1},
		"logs":       map[string]any{"level": "debug"},
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		e.T.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(e.Home, "procwatch.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		e.T.Fatalf("write config: %v", err)
	}
	e.config = path
	return path
}

// WaitForRunning polls `procwatch status --json` until running matches want.
func (e *TestEnv) WaitForRunning(want bool, timeout time.Duration) {
	e.T.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		out, _, _ := e.Procwatch("status", "--json")
		var st struct {
			Running bool `json:"running"`
		}
		if err := json.Unmarshal([]byte(out), &st); err == nil && st.Running == want {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	e.T.Fatalf("timeout: running did not become %v within %s", want, timeout)
}

// LogFile returns the daemon log contents.
func (e *TestEnv) LogFile() string {
	data, _ := os.ReadFile(filepath.Join(e.Home, "procwatch.log"))
	return string(data)
}

// Cleanup stops the daemon and kills any testapp left behind.
func (e *TestEnv) Cleanup() {
	if e.config != "" {
		e.Procwatch("stop")
	}
	for _, cmd := range e.apps {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}
	// Give the daemon time to clean up
	time.Sleep(200 * time.Millisecond)
}

// cleanEnv drops variables that would point procwatch at the host's own
// config or mail server.
func cleanEnv() []string {
	var out []string
	for _, kv := range os.Environ() {
		switch {
		case strings.HasPrefix(kv, "PROCWATCH_"), strings.HasPrefix(kv, "MAIL_"):
			continue
		}
		out = append(out, kv)
	}
	return out
}

func requireFile(t *testing.T, path, hint string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("required file not found: %s\nHint: %s", path, hint)
	}
}
