package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/7c/procwatch/internal/config"
	"github.com/7c/procwatch/internal/display"
	"github.com/7c/procwatch/internal/sample"
	"github.com/7c/procwatch/internal/sysmetrics"
	"github.com/7c/procwatch/internal/watch"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate every configured process once without killing anything",
	Long: `Sample the system and every configured process once and print the
verdict the watcher would reach right now. Nothing is signalled.

Exits 2 when at least one process would be killed.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r := loadConfig()
		src, err := sample.NewSource(r.Source)
		if err != nil {
			exitError(err.Error())
		}
		report, err := buildCheck(r, src, sysmetrics.NewSystem())
		if err != nil {
			exitError(err.Error())
		}

		if jsonOutput {
			outputJSON(report)
		} else {
			display.RenderCheck(os.Stdout, report)
		}
		for _, p := range report.Processes {
			if p.Verdict == watch.Kill.String() {
				os.Exit(2)
			}
		}
	},
}

// buildCheck evaluates every configured process against one reading of
// the system metrics.
func buildCheck(r *config.Resolved, src sample.Source, m watch.Metrics) (display.CheckReport, error) {
	report := display.CheckReport{
		MemLimit:  r.MemLimit,
		CPULimit:  r.CPULimit,
		Pressure:  watch.PressureThreshold,
		Processes: make([]display.CheckRow, 0, len(r.Processes)),
	}
	var err error
	if report.SystemMem, err = m.MemoryUtilization(); err != nil {
		return report, fmt.Errorf("check: %w", err)
	}
	if report.SystemCPU, err = m.CPUUtilization(); err != nil {
		return report, fmt.Errorf("check: %w", err)
	}

	for _, p := range r.Processes {
		snap, err := src.Lookup(p.PID)
		if err != nil {
			report.Processes = append(report.Processes, display.MissingRow(p.Name, p.PID, err))
			continue
		}
		d := watch.Decide(snap, report.SystemMem, report.SystemCPU, r.MemLimit, r.CPULimit)
		report.Processes = append(report.Processes, display.RowFor(p.Name, p.PID, snap, d))
	}
	return report, nil
}
