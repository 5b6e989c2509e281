package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/7c/procwatch/internal/daemon"
	"github.com/7c/procwatch/internal/gui"
	"github.com/7c/procwatch/internal/sample"
	"github.com/7c/procwatch/internal/sysmetrics"
)

var topRefresh time.Duration

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Live dashboard of the watched processes (read-only)",
	Long: `Open a terminal dashboard showing system pressure, every configured
process and the verdict the watcher would reach, refreshed continuously,
next to the tail of the daemon log. Nothing is killed from here.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r := loadConfig()
		src, err := sample.NewSource(r.Source)
		if err != nil {
			exitError(err.Error())
		}

		targets := make([]gui.Target, len(r.Processes))
		for i, p := range r.Processes {
			targets[i] = gui.Target{Name: p.Name, PID: p.PID}
		}
		err = gui.Run(gui.Options{
			Targets:  targets,
			Source:   src,
			Metrics:  sysmetrics.NewSystem(),
			MemLimit: r.MemLimit,
			CPULimit: r.CPULimit,
			Refresh:  topRefresh,
			LogFile:  r.LogFile,
			Daemon:   func() (int, bool) { return daemon.Status(r.PIDFile) },
		})
		if err != nil {
			exitError(err.Error())
		}
	},
}

func init() {
	topCmd.Flags().DurationVarP(&topRefresh, "refresh", "r", time.Second, "refresh interval")
}
