package display

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration formats a duration in a human-friendly way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 && seconds > 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}

// FormatKiB formats a size given in KiB, the unit ps reports VSZ and RSS in.
func FormatKiB(kib int64) string {
	const (
		MiB = 1024
		GiB = 1024 * MiB
	)
	switch {
	case kib >= GiB:
		return fmt.Sprintf("%.1f GB", float64(kib)/GiB)
	case kib >= MiB:
		return fmt.Sprintf("%.1f MB", float64(kib)/MiB)
	default:
		return fmt.Sprintf("%d KB", kib)
	}
}

// Truncate shortens s to n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
