package watch

import "github.com/7c/procwatch/internal/sample"

// PressureThreshold is the system-wide utilization above which watched
// processes become eligible for eviction.
const PressureThreshold = 90.0

// Default per-process limits, in percent.
const (
	DefaultMemLimit = 50.0
	DefaultCPULimit = 50.0
)

// Verdict is the outcome of the eviction policy.
type Verdict int

const (
	Keep Verdict = iota
	Kill
)

func (v Verdict) String() string {
	if v == Kill {
		return "kill"
	}
	return "keep"
}

// Decision is a Verdict plus the resource clauses that produced it.
type Decision struct {
	Verdict Verdict
	Memory  bool // process memory over limit while system memory is under pressure
	CPU     bool // process cpu over limit while system cpu is under pressure
}

// Reasons names the clauses that fired.
func (d Decision) Reasons() []string {
	var r []string
	if d.Memory {
		r = append(r, "memory")
	}
	if d.CPU {
		r = append(r, "cpu")
	}
	return r
}

// Decide applies the two-factor policy: a process is killed only when it
// exceeds its own limit on a resource and the system is above
// PressureThreshold on that same resource. All comparisons are strict.
func Decide(snap sample.Snapshot, sysMem, sysCPU, memLimit, cpuLimit float64) Decision {
	d := Decision{
		Memory: snap.Mem > memLimit && sysMem > PressureThreshold,
		CPU:    snap.CPU > cpuLimit && sysCPU > PressureThreshold,
	}
	if d.Memory || d.CPU {
		d.Verdict = Kill
	}
	return d
}
