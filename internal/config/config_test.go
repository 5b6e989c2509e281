package config

import (
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "procwatch.json", `{
  "processes": {"web": 101, "worker": 202},
  "parameters": {"interval": 0.5, "mem_limit": 40, "cpu_limit": 70},
  "logs": {"max_size": "10M", "max_files": 5, "level": "debug"}
}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"web": 101, "worker": 202}, cfg.Processes)
	require.NotNil(t, cfg.Parameters)
	assert.Equal(t, 0.5, cfg.Parameters.Interval)
	assert.Nil(t, cfg.Notify)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "procwatch.yaml", `
processes:
  web: 101
parameters:
  mem_limit: 30
  source: ps
notify:
  webhook:
    url: https://hooks.example.com/procwatch
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"web": 101}, cfg.Processes)
	assert.Equal(t, "ps", cfg.Parameters.Source)
	require.NotNil(t, cfg.Notify)
	assert.Equal(t, "https://hooks.example.com/procwatch", cfg.Notify.Webhook.URL)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "config file not found")

	path := writeFile(t, "bad.json", "{\n  \"processes\": {\n    \"web\": 1,\n  }\n}")
	_, err = Load(path)
	assert.ErrorContains(t, err, "invalid JSON at line 4,")

	path = writeFile(t, "type.json", `{"processes": {"web": "abc"}}`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "expected int")

	path = writeFile(t, "bad.yml", "processes: [1, 2")
	_, err = Load(path)
	assert.ErrorContains(t, err, "invalid YAML")
}

func TestResolveDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PROCWATCH_HOME", home)

	r, warnings, err := Resolve(nil, Env{})
	require.NoError(t, err)
	assert.Equal(t, []string{"processes: nothing to watch"}, warnings)
	assert.Equal(t, time.Second, r.Interval)
	assert.Equal(t, 50.0, r.MemLimit)
	assert.Equal(t, 50.0, r.CPULimit)
	assert.Equal(t, "native", r.Source)
	assert.Equal(t, filepath.Join(home, "procwatch.pid"), r.PIDFile)
	assert.Equal(t, filepath.Join(home, "procwatch.log"), r.LogFile)
	assert.Equal(t, "/", r.WorkDir)
	assert.Nil(t, r.RunAs)
	assert.Equal(t, int64(1<<20), r.LogMaxSize)
	assert.Equal(t, 3, r.LogMaxFiles)
	assert.Equal(t, slog.LevelInfo, r.LogLevel)
	assert.Nil(t, r.Email)
	assert.Nil(t, r.Webhook)
	assert.Empty(t, r.TelegrafAddr)
}

func TestResolveFull(t *testing.T) {
	retries := 0
	cfg := &Config{
		Processes:  map[string]int{"b": 20, "a": 10, "c": 10},
		Parameters: &ParametersConfig{Interval: 2.5, MemLimit: 30, CPULimit: 100, Source: "ps"},
		Daemon:     &DaemonConfig{PIDFile: "/run/procwatch.pid", LogFile: "/var/log/procwatch.log"},
		Logs:       &LogsConfig{MaxSize: "500K", MaxFiles: 7, Level: "warn"},
		Notify: &NotifyConfig{
			Email:   &EmailConfig{Host: "smtp.example.com", From: "pw@example.com", To: []string{"ops@example.com"}},
			Webhook: &WebhookConfig{URL: "http://127.0.0.1:9000/hook", Retries: &retries, Timeout: 1.5},
		},
		Telemetry: &TelemetryConfig{Telegraf: &TelegrafConfig{UDP: "127.0.0.1:8094"}},
	}

	r, warnings, err := Resolve(cfg, Env{MailPass: "s3cret"})
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "pid 10")
	assert.Equal(t, []Process{{"a", 10}, {"b", 20}, {"c", 10}}, r.Processes)
	assert.Equal(t, []int{10, 20, 10}, r.PIDs())

	assert.Equal(t, 2500*time.Millisecond, r.Interval)
	assert.Equal(t, 30.0, r.MemLimit)
	assert.Equal(t, 100.0, r.CPULimit)
	assert.Equal(t, "ps", r.Source)
	assert.Equal(t, "/run/procwatch.pid", r.PIDFile)
	assert.Equal(t, "/var/log/procwatch.log", r.LogFile)
	assert.Equal(t, int64(500*1024), r.LogMaxSize)
	assert.Equal(t, 7, r.LogMaxFiles)
	assert.Equal(t, slog.LevelWarn, r.LogLevel)

	require.NotNil(t, r.Email)
	assert.Equal(t, "smtp.example.com:25", r.Email.Host)
	assert.Equal(t, "s3cret", r.Email.Password)
	assert.Equal(t, []string{"ops@example.com"}, r.Email.To)

	require.NotNil(t, r.Webhook)
	assert.Equal(t, 0, r.Webhook.MaxRetries)
	assert.Equal(t, 1500*time.Millisecond, r.Webhook.Timeout)

	assert.Equal(t, "127.0.0.1:8094", r.TelegrafAddr)
	assert.Equal(t, "procwatch", r.TelegrafMeas)
}

func TestResolveMailFromEnvOnly(t *testing.T) {
	r, _, err := Resolve(&Config{Processes: map[string]int{"a": 1}}, Env{MailAddr: "me@example.com", MailHost: "smtp.example.com:587"})
	require.NoError(t, err)
	require.NotNil(t, r.Email)
	assert.Equal(t, "me@example.com", r.Email.From)
	assert.Equal(t, "smtp.example.com:587", r.Email.Host)

	r, _, err = Resolve(&Config{Processes: map[string]int{"a": 1}}, Env{MailAddr: "me@example.com"})
	require.NoError(t, err)
	assert.Nil(t, r.Email, "a sender without a server does not enable mail")
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"zero pid", Config{Processes: map[string]int{"web": 0}}, "pid must be > 0"},
		{"negative interval", Config{Parameters: &ParametersConfig{Interval: -1}}, "parameters.interval"},
		{"mem limit too high", Config{Parameters: &ParametersConfig{MemLimit: 101}}, "parameters.mem_limit"},
		{"negative cpu limit", Config{Parameters: &ParametersConfig{CPULimit: -5}}, "parameters.cpu_limit"},
		{"unknown source", Config{Parameters: &ParametersConfig{Source: "procfs"}}, "parameters.source"},
		{"bad size", Config{Logs: &LogsConfig{MaxSize: "lots"}}, "logs.max_size"},
		{"negative files", Config{Logs: &LogsConfig{MaxFiles: -1}}, "logs.max_files"},
		{"bad level", Config{Logs: &LogsConfig{Level: "loud"}}, "logs.level"},
		{"mail without host", Config{Notify: &NotifyConfig{Email: &EmailConfig{From: "a@b"}}}, "notify.email.host"},
		{"mail without sender", Config{Notify: &NotifyConfig{Email: &EmailConfig{Host: "h"}}}, "notify.email.from"},
		{"bad recipient", Config{Notify: &NotifyConfig{Email: &EmailConfig{Host: "h", From: "a@b", To: []string{"nobody"}}}}, "notify.email.to"},
		{"bad webhook", Config{Notify: &NotifyConfig{Webhook: &WebhookConfig{URL: "ftp://x"}}}, "notify.webhook.url"},
		{"telegraf no udp", Config{Telemetry: &TelemetryConfig{Telegraf: &TelegrafConfig{}}}, "telemetry.telegraf.udp is required"},
		{"missing chdir", Config{Daemon: &DaemonConfig{Chdir: "/nonexistent/procwatch"}}, "daemon.chdir"},
		{"unknown user", Config{Daemon: &DaemonConfig{User: "procwatch-no-such-user"}}, "daemon.user"},
		{"unknown group", Config{Daemon: &DaemonConfig{Group: "procwatch-no-such-group"}}, "daemon.group"},
		{"telegraf bad udp", Config{Telemetry: &TelemetryConfig{Telegraf: &TelegrafConfig{UDP: "nowhere"}}}, "expected \"host:port\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Resolve(&tt.cfg, Env{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 1 << 20, false},
		{"4096", 4096, false},
		{"500K", 500 << 10, false},
		{"10m", 10 << 20, false},
		{"2G", 2 << 30, false},
		{"1MB", 1 << 20, false},
		{"-1M", 0, true},
		{"abc", 0, true},
		{"M", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestEnvAndPath(t *testing.T) {
	e, err := parseEnv(map[string]string{
		"PROCWATCH_CONFIG": "/tmp/pw.yaml",
		"MAIL_ADDR":        "me@example.com",
		"MAIL_TO":          "a@example.com,b@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", e.MailAddr)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, e.MailTo)

	assert.Equal(t, "/etc/x.json", Path("/etc/x.json", e))
	assert.Equal(t, "/tmp/pw.yaml", Path("", e))
	assert.Equal(t, DefaultPath, Path("", Env{}))
	assert.True(t, strings.HasSuffix(DefaultPath, ".json"))
}

func TestOpen(t *testing.T) {
	for _, k := range []string{"MAIL_ADDR", "MAIL_PASS", "MAIL_HOST", "MAIL_TO"} {
		t.Setenv(k, "")
	}
	home := t.TempDir()
	t.Setenv("PROCWATCH_HOME", home)
	path := writeFile(t, "procwatch.yaml", "processes:\n  web: 42\n  api: 42\n")
	t.Setenv("PROCWATCH_CONFIG", path)

	r, warnings, err := Open("")
	require.NoError(t, err)
	assert.Equal(t, path, r.Path)
	assert.Equal(t, []int{42, 42}, r.PIDs())
	assert.Equal(t, filepath.Join(home, "procwatch.pid"), r.PIDFile)
	assert.Len(t, warnings, 1)
	assert.Nil(t, r.Email)

	_, _, err = Open(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestOpenAnchorsRelativeDaemonPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "run"), 0o755))
	path := filepath.Join(dir, "procwatch.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "processes": {"web": 42},
  "daemon": {"pidfile": "run/procwatch.pid", "logfile": "procwatch.log", "chdir": "run"}
}`), 0o644))

	t.Chdir(t.TempDir())
	r, _, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run", "procwatch.pid"), r.PIDFile)
	assert.Equal(t, filepath.Join(dir, "procwatch.log"), r.LogFile)
	assert.Equal(t, filepath.Join(dir, "run"), r.WorkDir)
}

func TestResolveRunAs(t *testing.T) {
	me, err := user.Current()
	require.NoError(t, err)

	r, _, err := Resolve(&Config{Daemon: &DaemonConfig{User: me.Username}}, Env{})
	require.NoError(t, err)
	require.NotNil(t, r.RunAs)
	assert.Equal(t, me.Username, r.RunAs.User)
	assert.Equal(t, me.Uid, strconv.FormatUint(uint64(r.RunAs.UID), 10))
	assert.Equal(t, me.Gid, strconv.FormatUint(uint64(r.RunAs.GID), 10))

	g, err := user.LookupGroupId(me.Gid)
	if err != nil {
		t.Skipf("primary group of %s has no name: %v", me.Username, err)
	}
	r, _, err = Resolve(&Config{Daemon: &DaemonConfig{Group: g.Name}}, Env{})
	require.NoError(t, err)
	require.NotNil(t, r.RunAs)
	assert.Empty(t, r.RunAs.User)
	assert.Equal(t, uint32(os.Getuid()), r.RunAs.UID)
	assert.Equal(t, g.Name, r.RunAs.Group)
}

const legacyINI = `; converted from the old watcher
[PID_LIST]
Web = 1234
worker: 5678

[PARAMETERS]
interval = 2
mem_limit = 40
cpu_limit = 75.5

[DAEMON_MODE]
pidfile = /tmp/watchpmc.pid
logfile = /tmp/watchpmc.log
`

func TestLoadINI(t *testing.T) {
	path := writeFile(t, "watchpmc.conf", legacyINI)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"web": 1234, "worker": 5678}, cfg.Processes)
	require.NotNil(t, cfg.Parameters)
	assert.Equal(t, 2.0, cfg.Parameters.Interval)
	assert.Equal(t, 40.0, cfg.Parameters.MemLimit)
	assert.Equal(t, 75.5, cfg.Parameters.CPULimit)
	require.NotNil(t, cfg.Daemon)
	assert.Equal(t, "/tmp/watchpmc.pid", cfg.Daemon.PIDFile)
	assert.Equal(t, "/tmp/watchpmc.log", cfg.Daemon.LogFile)

	r, _, err := Resolve(cfg, Env{})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, r.Interval)
	assert.Equal(t, []int{1234, 5678}, r.PIDs())

	// Any extension works through LoadINI.
	other := writeFile(t, "watchpmc.cfg", "[PID_LIST]\nsolo = 9\n")
	cfg, err = LoadINI(other)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"solo": 9}, cfg.Processes)
	assert.Nil(t, cfg.Parameters)
	assert.Nil(t, cfg.Daemon)
}

func TestLoadINIErrors(t *testing.T) {
	tests := []struct {
		name, content, want string
	}{
		{"no pid list", "[PARAMETERS]\ninterval = 1\n", "missing [PID_LIST]"},
		{"bad pid", "[PID_LIST]\nweb = abc\n", "is not a pid"},
		{"bad limit", "[PID_LIST]\nweb = 1\n[PARAMETERS]\nmem_limit = lots\n", "is not a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadINI(writeFile(t, "legacy.ini", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
