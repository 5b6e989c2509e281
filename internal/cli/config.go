package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/7c/procwatch/internal/config"
	"github.com/7c/procwatch/internal/display"
)

var configValidate bool

var configShowCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r, warnings, err := config.Open(configFlag)
		if err != nil {
			exitError(err.Error())
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
		}
		if configValidate {
			fmt.Println("Configuration valid")
			return
		}
		if jsonOutput {
			outputJSON(resolvedView(r))
			return
		}
		printResolved(r)
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configValidate, "validate", false, "validate config only")
}

// resolvedView is the JSON shape of a resolved config. Secrets are left out.
func resolvedView(r *config.Resolved) map[string]any {
	out := map[string]any{
		"config_file": r.Path,
		"processes":   r.Processes,
		"interval":    r.Interval.String(),
		"mem_limit":   r.MemLimit,
		"cpu_limit":   r.CPULimit,
		"source":      r.Source,
		"pidfile":     r.PIDFile,
		"logfile":     r.LogFile,
		"workdir":     r.WorkDir,
		"run_as":      r.RunAs,
		"logs": map[string]any{
			"max_size":  r.LogMaxSize,
			"max_files": r.LogMaxFiles,
			"level":     r.LogLevel.String(),
		},
		"email":    r.Email != nil,
		"webhook":  r.Webhook != nil,
		"telegraf": r.TelegrafAddr != "",
	}
	if r.Email != nil {
		out["email_host"] = r.Email.Host
		out["email_to"] = r.Email.To
	}
	if r.Webhook != nil {
		out["webhook_url"] = r.Webhook.URL
	}
	if r.TelegrafAddr != "" {
		out["telegraf_addr"] = r.TelegrafAddr
		out["telegraf_measurement"] = r.TelegrafMeas
	}
	return out
}

func printResolved(r *config.Resolved) {
	fmt.Printf("Config file:  %s\n\n", r.Path)

	fmt.Println(display.Bold("Processes:"))
	if len(r.Processes) == 0 {
		fmt.Printf("  %s\n", display.Dim("(none)"))
	}
	for _, p := range r.Processes {
		fmt.Printf("  %-12s %d\n", p.Name, p.PID)
	}
	fmt.Println()

	fmt.Println(display.Bold("Parameters:"))
	fmt.Printf("  Interval:     %s\n", r.Interval)
	fmt.Printf("  Mem limit:    %.1f%%\n", r.MemLimit)
	fmt.Printf("  CPU limit:    %.1f%%\n", r.CPULimit)
	fmt.Printf("  Source:       %s\n\n", r.Source)

	fmt.Println(display.Bold("Daemon:"))
	fmt.Printf("  PID file:     %s\n", r.PIDFile)
	fmt.Printf("  Log file:     %s\n", r.LogFile)
	fmt.Printf("  Work dir:     %s\n", r.WorkDir)
	if r.RunAs != nil {
		fmt.Printf("  Run as:       uid %d gid %d\n", r.RunAs.UID, r.RunAs.GID)
	}
	fmt.Printf("  Log rotation: %s x %d\n", display.FormatKiB(r.LogMaxSize/1024), r.LogMaxFiles)
	fmt.Printf("  Log level:    %s\n\n", strings.ToLower(r.LogLevel.String()))

	fmt.Println(display.Bold("Notify:"))
	if r.Email != nil {
		fmt.Printf("  Email:        %s via %s\n", strings.Join(r.Email.To, ", "), r.Email.Host)
	} else {
		fmt.Printf("  Email:        disabled\n")
	}
	if r.Webhook != nil {
		fmt.Printf("  Webhook:      %s (%d retries)\n\n", r.Webhook.URL, r.Webhook.MaxRetries)
	} else {
		fmt.Printf("  Webhook:      disabled\n\n")
	}

	fmt.Println(display.Bold("Telemetry:"))
	if r.TelegrafAddr != "" {
		fmt.Printf("  Telegraf:     %s (%s)\n", r.TelegrafAddr, r.TelegrafMeas)
	} else {
		fmt.Printf("  Telegraf:     disabled\n")
	}
}
