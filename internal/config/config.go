// Package config loads and validates the procwatch configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the raw parsed configuration. Sections left out of the file
// are nil and take their defaults in Resolve.
type Config struct {
	Processes  map[string]int    `json:"processes" yaml:"processes"`
	Parameters *ParametersConfig `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Daemon     *DaemonConfig     `json:"daemon,omitempty" yaml:"daemon,omitempty"`
	Logs       *LogsConfig       `json:"logs,omitempty" yaml:"logs,omitempty"`
	Notify     *NotifyConfig     `json:"notify,omitempty" yaml:"notify,omitempty"`
	Telemetry  *TelemetryConfig  `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

type ParametersConfig struct {
	Interval float64 `json:"interval" yaml:"interval"` // seconds
	MemLimit float64 `json:"mem_limit" yaml:"mem_limit"`
	CPULimit float64 `json:"cpu_limit" yaml:"cpu_limit"`
	Source   string  `json:"source,omitempty" yaml:"source,omitempty"`
}

type DaemonConfig struct {
	PIDFile string `json:"pidfile,omitempty" yaml:"pidfile,omitempty"`
	LogFile string `json:"logfile,omitempty" yaml:"logfile,omitempty"`
	Chdir   string `json:"chdir,omitempty" yaml:"chdir,omitempty"`
	User    string `json:"user,omitempty" yaml:"user,omitempty"`   // needs root
	Group   string `json:"group,omitempty" yaml:"group,omitempty"` // needs root
}

type LogsConfig struct {
	MaxSize  string `json:"max_size" yaml:"max_size"`
	MaxFiles int    `json:"max_files" yaml:"max_files"`
	Level    string `json:"level" yaml:"level"`
}

type NotifyConfig struct {
	Email   *EmailConfig   `json:"email" yaml:"email"`
	Webhook *WebhookConfig `json:"webhook" yaml:"webhook"`
}

type EmailConfig struct {
	Host     string   `json:"host" yaml:"host"`
	From     string   `json:"from" yaml:"from"`
	Password string   `json:"password" yaml:"password"`
	To       []string `json:"to" yaml:"to"`
}

type WebhookConfig struct {
	URL     string  `json:"url" yaml:"url"`
	Retries *int    `json:"retries" yaml:"retries"`
	Timeout float64 `json:"timeout" yaml:"timeout"` // seconds
}

type TelemetryConfig struct {
	Telegraf *TelegrafConfig `json:"telegraf" yaml:"telegraf"`
}

type TelegrafConfig struct {
	UDP         string `json:"udp" yaml:"udp"`
	Measurement string `json:"measurement" yaml:"measurement"`
}

// Load reads and parses the file at path. Files ending in .yaml or .yml
// are YAML, .ini or .conf the legacy INI layout, everything else JSON.
func Load(path string) (*Config, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s: invalid YAML - %w", path, err)
		}
	case ".ini", ".conf":
		return parseINI(data, path)
	default:
		if err := unmarshalJSON(data, &cfg, path); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadINI parses path as a legacy INI config whatever its extension.
func LoadINI(path string) (*Config, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return parseINI(data, path)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("config file not readable: %s - %w", path, err)
	}
	return data, nil
}

func unmarshalJSON(data []byte, cfg *Config, path string) error {
	if err := json.Unmarshal(data, cfg); err != nil {
		var synErr *json.SyntaxError
		if errors.As(err, &synErr) {
			line, col := lineCol(data, synErr.Offset)
			return fmt.Errorf("%s: invalid JSON at line %d, column %d: %s", path, line, col, synErr)
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			line, col := lineCol(data, typeErr.Offset)
			return fmt.Errorf("%s: %s at line %d, column %d: expected %s, got %s",
				path, typeErr.Field, line, col, typeErr.Type, typeErr.Value)
		}
		return fmt.Errorf("%s: invalid JSON - %w", path, err)
	}
	return nil
}

func lineCol(data []byte, offset int64) (int, int) {
	line, col := 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// Path picks the config file: the flag wins, then PROCWATCH_CONFIG, then
// the system default.
func Path(flag string, e Env) string {
	switch {
	case flag != "":
		return flag
	case e.Config != "":
		return e.Config
	default:
		return DefaultPath
	}
}
