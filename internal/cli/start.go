package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/7c/procwatch/internal/daemon"
	"github.com/7c/procwatch/internal/display"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the watcher in the background",
	Long: `Start a detached watcher. It logs to the configured log file and
records its pid in the configured pidfile.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r := loadConfig()
		pid, err := daemon.Start(r)
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			exitError(fmt.Sprintf("already running (pid %d)", pid))
		}
		if err != nil {
			exitError(err.Error())
		}
		if jsonOutput {
			outputJSON(map[string]any{"status": "started", "pid": pid, "log": r.LogFile})
			return
		}
		fmt.Printf("%s procwatch started (pid %d)\n", display.Green("✓"), pid)
		fmt.Printf("  log: %s\n", display.Dim(r.LogFile))
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background watcher",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r := loadConfig()
		pid, err := daemon.Stop(r.PIDFile)
		if errors.Is(err, daemon.ErrNotRunning) {
			exitError("procwatch is not running")
		}
		if err != nil {
			exitError(err.Error())
		}
		if jsonOutput {
			outputJSON(map[string]any{"status": "stopped", "pid": pid})
			return
		}
		fmt.Printf("%s procwatch stopped (pid %d)\n", display.Green("✓"), pid)
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the background watcher, re-reading the config",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r := loadConfig()
		pid, err := daemon.Restart(r)
		if err != nil {
			exitError(err.Error())
		}
		if jsonOutput {
			outputJSON(map[string]any{"status": "restarted", "pid": pid})
			return
		}
		fmt.Printf("%s procwatch restarted (pid %d)\n", display.Green("✓"), pid)
	},
}
