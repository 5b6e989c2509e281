package daemon

import (
	"log/slog"
	"strconv"
)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func itoa(n int) string { return strconv.Itoa(n) }

// quietMetrics reports an idle system so nothing is ever evicted.
type quietMetrics struct{}

func (quietMetrics) MemoryUtilization() (float64, error) { return 10, nil }
func (quietMetrics) CPUUtilization() (float64, error)    { return 10, nil }
