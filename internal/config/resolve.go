package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/7c/procwatch/internal/logwriter"
	"github.com/7c/procwatch/internal/notify"
	"github.com/7c/procwatch/internal/paths"
	"github.com/7c/procwatch/internal/sample"
	"github.com/7c/procwatch/internal/telemetry"
	"github.com/7c/procwatch/internal/watch"
)

const defaultWebhookRetries = 3

// Process is one configured pid with its label.
type Process struct {
	Name string `json:"name"`
	PID  int    `json:"pid"`
}

// Resolved holds the fully resolved, validated runtime configuration.
type Resolved struct {
	Path      string
	Processes []Process

	Interval time.Duration
	MemLimit float64
	CPULimit float64
	Source   string

	PIDFile     string
	LogFile     string
	WorkDir     string
	RunAs       *Credential // nil keeps the invoking user
	LogMaxSize  int64
	LogMaxFiles int
	LogLevel    slog.Level

	Email   *notify.SMTPConfig
	Webhook *notify.WebhookConfig

	TelegrafAddr string // empty when disabled
	TelegrafMeas string
}

// Credential is the account the detached daemon switches to.
type Credential struct {
	User  string `json:"user"`
	Group string `json:"group"`
	UID   uint32 `json:"uid"`
	GID   uint32 `json:"gid"`
}

// PIDs returns the configured pids in process-name order.
func (r *Resolved) PIDs() []int {
	pids := make([]int, len(r.Processes))
	for i, p := range r.Processes {
		pids[i] = p.PID
	}
	return pids
}

// Resolve applies defaults and environment overrides to cfg (which may be
// nil) and validates the result. Warnings describe accepted but suspicious
// settings. Relative daemon paths are taken from the working directory.
func Resolve(cfg *Config, e Env) (*Resolved, []string, error) {
	return resolve(cfg, e, "")
}

// resolve is Resolve with relative daemon paths anchored at base.
func resolve(cfg *Config, e Env, base string) (*Resolved, []string, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	r := &Resolved{
		Interval:    watch.DefaultInterval,
		MemLimit:    watch.DefaultMemLimit,
		CPULimit:    watch.DefaultCPULimit,
		Source:      sample.SourceNative,
		PIDFile:     paths.PIDFile(),
		LogFile:     paths.LogFile(),
		WorkDir:     "/",
		LogMaxSize:  logwriter.DefaultMaxSize,
		LogMaxFiles: logwriter.DefaultMaxFiles,
		LogLevel:    slog.LevelInfo,
	}
	var warnings []string

	// --- Processes ---
	names := make([]string, 0, len(cfg.Processes))
	for name := range cfg.Processes {
		names = append(names, name)
	}
	sort.Strings(names)
	seen := make(map[int]string, len(names))
	for _, name := range names {
		pid := cfg.Processes[name]
		if pid <= 0 {
			return nil, nil, fmt.Errorf("processes.%s: pid must be > 0 (got: %d)", name, pid)
		}
		if first, dup := seen[pid]; dup {
			warnings = append(warnings, fmt.Sprintf("processes.%s: pid %d is also listed as %q and will be watched twice", name, pid, first))
		} else {
			seen[pid] = name
		}
		r.Processes = append(r.Processes, Process{Name: name, PID: pid})
	}
	if len(r.Processes) == 0 {
		warnings = append(warnings, "processes: nothing to watch")
	}

	// --- Parameters ---
	if p := cfg.Parameters; p != nil {
		if p.Interval < 0 {
			return nil, nil, fmt.Errorf("parameters.interval must be > 0 (got: %g)", p.Interval)
		}
		if p.Interval > 0 {
			r.Interval = time.Duration(p.Interval * float64(time.Second))
		}
		var err error
		if r.MemLimit, err = limit("parameters.mem_limit", p.MemLimit, r.MemLimit); err != nil {
			return nil, nil, err
		}
		if r.CPULimit, err = limit("parameters.cpu_limit", p.CPULimit, r.CPULimit); err != nil {
			return nil, nil, err
		}
		switch p.Source {
		case "":
		case sample.SourceNative, sample.SourcePS:
			r.Source = p.Source
		default:
			return nil, nil, fmt.Errorf("parameters.source must be %q or %q (got: %q)", sample.SourceNative, sample.SourcePS, p.Source)
		}
	}

	// --- Daemon ---
	if d := cfg.Daemon; d != nil {
		if d.PIDFile != "" {
			r.PIDFile = expandIn(base, d.PIDFile)
		}
		if d.LogFile != "" {
			r.LogFile = expandIn(base, d.LogFile)
		}
		if d.Chdir != "" {
			r.WorkDir = expandIn(base, d.Chdir)
		}
		runAs, err := lookupCredential(d.User, d.Group)
		if err != nil {
			return nil, nil, err
		}
		r.RunAs = runAs
	}
	if info, err := os.Stat(r.WorkDir); err != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("daemon.chdir %q is not a directory", r.WorkDir)
	}

	// --- Logs ---
	if l := cfg.Logs; l != nil {
		size, err := ParseSize(l.MaxSize)
		if err != nil {
			return nil, nil, fmt.Errorf("logs.max_size %q - expected format like \"1M\", \"500K\", \"10M\"", l.MaxSize)
		}
		if l.MaxFiles < 0 {
			return nil, nil, fmt.Errorf("logs.max_files must be >= 0 (got: %d)", l.MaxFiles)
		}
		r.LogMaxSize = size
		if l.MaxFiles > 0 {
			r.LogMaxFiles = l.MaxFiles
		}
		if l.Level != "" {
			if err := r.LogLevel.UnmarshalText([]byte(l.Level)); err != nil {
				return nil, nil, fmt.Errorf("logs.level %q - expected debug, info, warn or error", l.Level)
			}
		}
	}

	// --- Notify ---
	var n NotifyConfig
	if cfg.Notify != nil {
		n = *cfg.Notify
	}
	email, err := resolveEmail(n.Email, e)
	if err != nil {
		return nil, nil, err
	}
	r.Email = email
	if n.Webhook != nil {
		wh, err := resolveWebhook(n.Webhook)
		if err != nil {
			return nil, nil, err
		}
		r.Webhook = wh
	}

	// --- Telemetry (absent = disabled) ---
	if cfg.Telemetry != nil && cfg.Telemetry.Telegraf != nil {
		tg := cfg.Telemetry.Telegraf
		if tg.UDP == "" {
			return nil, nil, fmt.Errorf("telemetry.telegraf.udp is required when telegraf is enabled")
		}
		if _, err := net.ResolveUDPAddr("udp", tg.UDP); err != nil {
			return nil, nil, fmt.Errorf("telemetry.telegraf.udp %q - expected \"host:port\"", tg.UDP)
		}
		r.TelegrafAddr = tg.UDP
		r.TelegrafMeas = tg.Measurement
		if r.TelegrafMeas == "" {
			r.TelegrafMeas = telemetry.DefaultMeasurement
		}
	}

	return r, warnings, nil
}

func expandIn(base, p string) string {
	if base != "" && !filepath.IsAbs(p) && !strings.HasPrefix(p, "~/") {
		p = filepath.Join(base, p)
	}
	return paths.Expand(p)
}

// lookupCredential resolves daemon.user and daemon.group. A user alone
// brings its primary group; a group alone keeps the invoking user.
func lookupCredential(userName, groupName string) (*Credential, error) {
	if userName == "" && groupName == "" {
		return nil, nil
	}
	c := &Credential{UID: uint32(os.Getuid()), GID: uint32(os.Getgid())}
	if userName != "" {
		u, err := user.Lookup(userName)
		if err != nil {
			return nil, fmt.Errorf("daemon.user: %w", err)
		}
		uid, err := strconv.ParseUint(u.Uid, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("daemon.user %q: uid %q is not numeric", userName, u.Uid)
		}
		gid, err := strconv.ParseUint(u.Gid, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("daemon.user %q: gid %q is not numeric", userName, u.Gid)
		}
		c.User, c.UID, c.GID = u.Username, uint32(uid), uint32(gid)
	}
	if groupName != "" {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return nil, fmt.Errorf("daemon.group: %w", err)
		}
		gid, err := strconv.ParseUint(g.Gid, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("daemon.group %q: gid %q is not numeric", groupName, g.Gid)
		}
		c.Group, c.GID = g.Name, uint32(gid)
	}
	return c, nil
}

func limit(field string, v, def float64) (float64, error) {
	switch {
	case v == 0:
		return def, nil
	case v < 0 || v > 100:
		return 0, fmt.Errorf("%s must be in (0, 100] (got: %g)", field, v)
	default:
		return v, nil
	}
}

// resolveEmail merges the notify.email section with MAIL_* variables.
// Mail is enabled when either supplies a sender and a server.
func resolveEmail(c *EmailConfig, e Env) (*notify.SMTPConfig, error) {
	var s notify.SMTPConfig
	if c != nil {
		s = notify.SMTPConfig{Host: c.Host, From: c.From, Password: c.Password, To: c.To}
	}
	if e.MailHost != "" {
		s.Host = e.MailHost
	}
	if e.MailAddr != "" {
		s.From = e.MailAddr
	}
	if e.MailPass != "" {
		s.Password = e.MailPass
	}
	if len(e.MailTo) > 0 {
		s.To = e.MailTo
	}

	if c == nil && (s.Host == "" || s.From == "") {
		return nil, nil
	}
	if s.Host == "" {
		return nil, fmt.Errorf("notify.email.host is required (or set MAIL_HOST)")
	}
	if s.From == "" {
		return nil, fmt.Errorf("notify.email.from is required (or set MAIL_ADDR)")
	}
	if len(s.To) == 0 {
		s.To = []string{s.From}
	}
	if _, _, err := net.SplitHostPort(s.Host); err != nil {
		s.Host = net.JoinHostPort(s.Host, "25")
	}
	for _, to := range s.To {
		if !strings.Contains(to, "@") {
			return nil, fmt.Errorf("notify.email.to: %q is not a mail address", to)
		}
	}
	return &s, nil
}

func resolveWebhook(c *WebhookConfig) (*notify.WebhookConfig, error) {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("notify.webhook.url %q - expected an http(s) URL", c.URL)
	}
	retries := defaultWebhookRetries
	if c.Retries != nil {
		if *c.Retries < 0 {
			return nil, fmt.Errorf("notify.webhook.retries must be >= 0 (got: %d)", *c.Retries)
		}
		retries = *c.Retries
	}
	if c.Timeout < 0 {
		return nil, fmt.Errorf("notify.webhook.timeout must be >= 0 (got: %g)", c.Timeout)
	}
	return &notify.WebhookConfig{
		URL:        c.URL,
		MaxRetries: retries,
		Timeout:    time.Duration(c.Timeout * float64(time.Second)),
	}, nil
}

// Open loads and resolves the configuration selected by flag and the
// environment.
func Open(flag string) (*Resolved, []string, error) {
	e, err := LoadEnv()
	if err != nil {
		return nil, nil, err
	}
	path := Path(flag, e)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	r, warnings, err := resolve(cfg, e, filepath.Dir(path))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	r.Path = path
	return r, warnings, nil
}
