package display

import "fmt"

// Raw ANSI codes keep lipgloss out of the plain CLI commands.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// Exported for the help template.
const (
	CReset  = reset
	CBold   = bold
	CDim    = dim
	CGreen  = green
	CYellow = yellow
	CCyan   = cyan
)

func Bold(s string) string   { return bold + s + reset }
func Dim(s string) string    { return dim + s + reset }
func Red(s string) string    { return red + s + reset }
func Green(s string) string  { return green + s + reset }
func Yellow(s string) string { return yellow + s + reset }
func Cyan(s string) string   { return cyan + s + reset }

// VerdictColor colors a policy verdict: kill is red, keep is green.
func VerdictColor(verdict string) string {
	switch verdict {
	case "kill":
		return Red(verdict)
	case "keep":
		return Green(verdict)
	default:
		return Yellow(verdict)
	}
}

// PercentColor formats p and colors it against limit: red above the limit,
// yellow past 80% of it.
func PercentColor(p, limit float64) string {
	s := fmt.Sprintf("%.1f%%", p)
	switch {
	case p > limit:
		return Red(s)
	case p > limit*0.8:
		return Yellow(s)
	default:
		return s
	}
}

// visibleLen counts the characters of s outside ANSI escape sequences.
func visibleLen(s string) int {
	n := 0
	inEsc := false
	for _, r := range s {
		if r == '\033' {
			inEsc = true
			continue
		}
		if inEsc {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEsc = false
			}
			continue
		}
		n++
	}
	return n
}

// padRight pads s to width visible characters.
func padRight(s string, width int) string {
	vis := visibleLen(s)
	if vis >= width {
		return s
	}
	return s + fmt.Sprintf("%*s", width-vis, "")
}
