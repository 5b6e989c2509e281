package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// INI section names of the legacy watcher config.
const (
	iniPIDList    = "PID_LIST"
	iniParameters = "PARAMETERS"
	iniDaemon     = "DAEMON_MODE"
)

// parseINI reads a legacy INI config:
//
//	[PID_LIST]     name = pid, one per watched process (required)
//	[PARAMETERS]   interval, mem_limit, cpu_limit
//	[DAEMON_MODE]  pidfile, logfile
//
// Keys are case-insensitive. Settings the INI format has no room for keep
// their defaults.
func parseINI(data []byte, path string) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, data)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid INI - %w", path, err)
	}

	pids, err := f.GetSection(iniPIDList)
	if err != nil {
		return nil, fmt.Errorf("%s: missing [%s] section", path, iniPIDList)
	}
	cfg := &Config{Processes: make(map[string]int)}
	for _, k := range pids.Keys() {
		pid, err := k.Int()
		if err != nil {
			return nil, fmt.Errorf("%s: [%s] %s = %q is not a pid", path, iniPIDList, k.Name(), k.String())
		}
		cfg.Processes[k.Name()] = pid
	}

	if s, err := f.GetSection(iniParameters); err == nil {
		p := &ParametersConfig{}
		fields := []struct {
			key string
			dst *float64
		}{
			{"interval", &p.Interval},
			{"mem_limit", &p.MemLimit},
			{"cpu_limit", &p.CPULimit},
		}
		for _, fld := range fields {
			if !s.HasKey(fld.key) {
				continue
			}
			v, err := s.Key(fld.key).Float64()
			if err != nil {
				return nil, fmt.Errorf("%s: [%s] %s = %q is not a number", path, iniParameters, fld.key, s.Key(fld.key).String())
			}
			*fld.dst = v
		}
		cfg.Parameters = p
	}

	if s, err := f.GetSection(iniDaemon); err == nil {
		cfg.Daemon = &DaemonConfig{
			PIDFile: s.Key("pidfile").String(),
			LogFile: s.Key("logfile").String(),
		}
	}
	return cfg, nil
}
