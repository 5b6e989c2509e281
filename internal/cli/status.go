package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/cobra"

	"github.com/7c/procwatch/internal/daemon"
	"github.com/7c/procwatch/internal/display"
)

type statusResult struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
	PIDFile string `json:"pidfile"`
	LogFile string `json:"logfile"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the background watcher is running",
	Long: `Report whether the background watcher is running. Exits 0 when it is
and 1 when it is not, so it can be used in scripts.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r := loadConfig()
		res := statusResult{PIDFile: r.PIDFile, LogFile: r.LogFile}
		res.PID, res.Running = daemon.Status(r.PIDFile)
		if res.Running {
			res.Uptime = uptime(res.PID)
		}

		if jsonOutput {
			outputJSON(res)
		} else if res.Running {
			fmt.Printf("%s procwatch is running (pid %d", display.Green("●"), res.PID)
			if res.Uptime != "" {
				fmt.Printf(", up %s", res.Uptime)
			}
			fmt.Println(")")
		} else {
			fmt.Printf("%s procwatch is not running\n", display.Dim("○"))
		}
		if !res.Running {
			os.Exit(1)
		}
	},
}

func uptime(pid int) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	ms, err := p.CreateTime()
	if err != nil {
		return ""
	}
	return display.FormatDuration(time.Since(time.UnixMilli(ms)))
}
