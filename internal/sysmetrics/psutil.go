package sysmetrics

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// PSUtil reads counters through gopsutil, for hosts without procfs.
type PSUtil struct{}

func (PSUtil) Memory() (MemCounters, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return MemCounters{}, err
	}
	return MemCounters{
		Total:   float64(v.Total) / 1024,
		Free:    float64(v.Free) / 1024,
		Buffers: float64(v.Buffers) / 1024,
		Cached:  float64(v.Cached) / 1024,
	}, nil
}

func (PSUtil) CPUTimes() ([]float64, error) {
	times, err := cpu.Times(false)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("no cpu times reported")
	}
	t := times[0]
	return []float64{
		t.User, t.Nice, t.System, t.Idle, t.Iowait,
		t.Irq, t.Softirq, t.Steal, t.Guest, t.GuestNice,
	}, nil
}
