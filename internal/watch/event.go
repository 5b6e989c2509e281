package watch

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/7c/procwatch/internal/sample"
)

// HostInfo identifies the machine an eviction happened on.
type HostInfo struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Machine  string `json:"machine"`
}

// LocalHost describes the running host.
func LocalHost() HostInfo {
	h := HostInfo{OS: runtime.GOOS, Machine: runtime.GOARCH}
	h.Hostname, _ = os.Hostname()
	if sys, machine, ok := uname(); ok {
		h.OS, h.Machine = sys, machine
	}
	return h
}

// Event records one eviction. It is built once and never modified.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Process   sample.Snapshot `json:"process"`
	Time      time.Time       `json:"time"`
	Host      HostInfo        `json:"host"`
	Reasons   []string        `json:"reasons"`
	SystemMem float64         `json:"system_mem"`
	SystemCPU float64         `json:"system_cpu"`
	// TerminateErr is set when the process could not be confirmed gone.
	TerminateErr string `json:"terminate_error,omitempty"`
}

func newEvent(snap sample.Snapshot, d Decision, sysMem, sysCPU float64, host HostInfo, now time.Time, termErr error) Event {
	e := Event{
		ID:        uuid.New(),
		Process:   snap,
		Time:      now,
		Host:      host,
		Reasons:   d.Reasons(),
		SystemMem: sysMem,
		SystemCPU: sysCPU,
	}
	if termErr != nil {
		e.TerminateErr = termErr.Error()
	}
	return e
}

// Subject is a one-line summary suitable for a mail subject.
func (e Event) Subject() string {
	if e.TerminateErr != "" {
		return fmt.Sprintf("procwatch report: failed to kill process %d on %s", e.Process.PID, e.Host.Hostname)
	}
	return fmt.Sprintf("procwatch report: process %d killed on %s", e.Process.PID, e.Host.Hostname)
}

var reportTemplate = template.Must(template.New("report").Parse(`<pre>
{{if .TerminateErr}}Process({{.Process.PID}}) exceeded its limits but could not be killed: {{.TerminateErr}}{{else}}Process({{.Process.PID}}) has been killed:{{end}}

<strong>Process Pid:</strong>   {{.Process.PID}}
<strong>Process CMD:</strong>   {{.Process.Command}}
<strong>Memory Usage:</strong>  {{printf "%.2f" .Process.Mem}}% (system {{printf "%.2f" .SystemMem}}%)
<strong>CPU Usage:</strong>     {{printf "%.2f" .Process.CPU}}% (system {{printf "%.2f" .SystemCPU}}%)
<strong>Process Owner:</strong> {{.Process.User}}
<strong>Reason:</strong>        {{range $i, $r := .Reasons}}{{if $i}}, {{end}}{{$r}}{{end}}

{{.Host.Hostname}} {{.Host.OS}} {{.Host.Machine}}
{{.Time.Format "2006-01-02 15:04:05.000000"}}
</pre>`))

// RenderReport renders the HTML report body handed to notification sinks.
func RenderReport(e Event) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, e); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}
