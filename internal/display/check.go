package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/7c/procwatch/internal/sample"
	"github.com/7c/procwatch/internal/watch"
)

// CheckRow is one configured process as evaluated by `procwatch check`.
type CheckRow struct {
	Name     string           `json:"name"`
	PID      int              `json:"pid"`
	Snapshot *sample.Snapshot `json:"snapshot,omitempty"`
	Error    string           `json:"error,omitempty"`
	Verdict  string           `json:"verdict"`
	Reasons  []string         `json:"reasons,omitempty"`
}

// CheckReport is the full output of a check.
type CheckReport struct {
	SystemMem float64    `json:"system_mem"`
	SystemCPU float64    `json:"system_cpu"`
	MemLimit  float64    `json:"mem_limit"`
	CPULimit  float64    `json:"cpu_limit"`
	Pressure  float64    `json:"pressure_threshold"`
	Processes []CheckRow `json:"processes"`
}

// RenderCheck prints the system pressure line and one table row per
// configured process.
func RenderCheck(w io.Writer, r CheckReport) {
	fmt.Fprintf(w, "%s memory %s  cpu %s  %s\n",
		Bold("system"),
		PercentColor(r.SystemMem, r.Pressure),
		PercentColor(r.SystemCPU, r.Pressure),
		Dim(fmt.Sprintf("(pressure above %.0f%%)", r.Pressure)),
	)

	tbl := NewTable("Name", "PID", "User", "CPU", "Memory", "RSS", "Verdict", "Command")
	for _, row := range r.Processes {
		pid := strconv.Itoa(row.PID)
		if row.Snapshot == nil {
			tbl.AddRow(Bold(row.Name), pid, Dim("-"), Dim("-"), Dim("-"), Dim("-"),
				VerdictColor(row.Verdict), Red(Truncate(row.Error, 40)))
			continue
		}
		s := row.Snapshot
		verdict := VerdictColor(row.Verdict)
		if len(row.Reasons) > 0 {
			verdict += Dim(" (" + strings.Join(row.Reasons, ", ") + ")")
		}
		tbl.AddRow(
			Bold(row.Name),
			pid,
			s.User,
			PercentColor(s.CPU, r.CPULimit),
			PercentColor(s.Mem, r.MemLimit),
			FormatKiB(s.RSS),
			verdict,
			Truncate(s.Command, 40),
		)
	}
	tbl.Render(w)
}

// RowFor builds the check row of one process from its decision.
func RowFor(name string, pid int, snap sample.Snapshot, d watch.Decision) CheckRow {
	return CheckRow{
		Name:     name,
		PID:      pid,
		Snapshot: &snap,
		Verdict:  d.Verdict.String(),
		Reasons:  d.Reasons(),
	}
}

// MissingRow builds the check row of a process that could not be sampled.
func MissingRow(name string, pid int, err error) CheckRow {
	return CheckRow{Name: name, PID: pid, Error: err.Error(), Verdict: "gone"}
}

// RenderListing prints one row per process in `procwatch ps`.
func RenderListing(w io.Writer, snaps []sample.Snapshot) {
	if len(snaps) == 0 {
		fmt.Fprintln(w, Dim("no matching processes"))
		return
	}
	tbl := NewTable("PID", "User", "CPU", "Memory", "RSS", "Stat", "Started", "Command")
	for _, s := range snaps {
		tbl.AddRow(
			strconv.Itoa(s.PID),
			s.User,
			fmt.Sprintf("%.1f%%", s.CPU),
			fmt.Sprintf("%.1f%%", s.Mem),
			FormatKiB(s.RSS),
			s.Stat,
			s.Start,
			Truncate(s.Command, 60),
		)
	}
	tbl.Render(w)
}
