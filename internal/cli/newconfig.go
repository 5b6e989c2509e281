package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/7c/procwatch/internal/config"
)

// sampleConfig lists every key. Pids are placeholders; notify and telemetry
// sections can be dropped to disable them.
const sampleConfig = `{
  "processes": {
    "web": 1234,
    "worker": 5678
  },
  "parameters": {
    "interval": 1,
    "mem_limit": 50,
    "cpu_limit": 50,
    "source": "native"
  },
  "daemon": {
    "pidfile": "~/.procwatch/procwatch.pid",
    "logfile": "~/.procwatch/procwatch.log",
    "chdir": "/"
  },
  "logs": {
    "max_size": "1M",
    "max_files": 3,
    "level": "info"
  },
  "notify": {
    "email": {
      "host": "smtp.example.com:587",
      "from": "procwatch@example.com",
      "to": ["ops@example.com"]
    },
    "webhook": {
      "url": "https://hooks.example.com/procwatch",
      "retries": 3,
      "timeout": 5
    }
  },
  "telemetry": {
    "telegraf": {
      "udp": "127.0.0.1:8094",
      "measurement": "procwatch"
    }
  }
}`

var (
	newconfigYAML    bool
	newconfigFromINI string
)

var newconfigCmd = &cobra.Command{
	Use:   "newconfig",
	Short: "Print a sample configuration with every option",
	Long: `Print a complete configuration showing every available option. Redirect
it to a file to bootstrap your config:

  procwatch newconfig > /etc/procwatch.json
  procwatch newconfig --yaml > procwatch.yaml

An INI config of the older watcher ([PID_LIST], [PARAMETERS],
[DAEMON_MODE]) converts with --from-ini:

  procwatch newconfig --from-ini /etc/watchpmc.conf > /etc/procwatch.json

A daemon started as root can drop to another account with "user" and
"group" in the daemon section; its pidfile and log directories must be
writable by that account.

The mail password is best left out of the file: MAIL_PASS (and MAIL_ADDR,
MAIL_HOST, MAIL_TO) override the notify.email section.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if newconfigFromINI != "" {
			out, warnings, err := convertINI(newconfigFromINI, newconfigYAML)
			if err != nil {
				exitError(err.Error())
			}
			for _, w := range warnings {
				fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
			}
			fmt.Print(out)
			return
		}
		if !newconfigYAML {
			fmt.Println(sampleConfig)
			return
		}
		out, err := sampleYAML()
		if err != nil {
			exitError(err.Error())
		}
		fmt.Print(out)
	},
}

// convertINI loads a legacy INI config, checks that it resolves and renders
// it as JSON or YAML.
func convertINI(path string, asYAML bool) (string, []string, error) {
	cfg, err := config.LoadINI(path)
	if err != nil {
		return "", nil, err
	}
	_, warnings, err := config.Resolve(cfg, config.Env{})
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	if asYAML {
		out, err := yaml.Marshal(cfg)
		return string(out), warnings, err
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", nil, err
	}
	return string(out) + "\n", warnings, nil
}

func init() {
	newconfigCmd.Flags().BoolVar(&newconfigYAML, "yaml", false, "print YAML instead of JSON")
	newconfigCmd.Flags().StringVar(&newconfigFromINI, "from-ini", "", "convert this legacy INI config instead of printing the sample")
}

func sampleYAML() (string, error) {
	var cfg config.Config
	if err := json.Unmarshal([]byte(sampleConfig), &cfg); err != nil {
		return "", err
	}
	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
