package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/7c/procwatch/internal/display"
	"github.com/7c/procwatch/internal/logwriter"
)

var (
	logsLines  int
	logsFollow bool
	logsFlush  bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the background watcher's log",
	Example: `  # Last 20 lines
  procwatch logs

  # Follow new entries (like tail -f)
  procwatch logs -f

  # Empty the current log file
  procwatch logs --flush`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r := loadConfig()
		if logsFlush {
			flushLog(r.LogFile, r.LogMaxSize, r.LogMaxFiles)
			return
		}

		lines, err := logwriter.Tail(r.LogFile, logsLines)
		if errors.Is(err, os.ErrNotExist) {
			exitError(fmt.Sprintf("%s not found - the watcher has not started yet", r.LogFile))
		}
		if err != nil {
			exitError(fmt.Sprintf("cannot read log: %v", err))
		}
		if jsonOutput {
			outputJSON(map[string]any{"log_path": r.LogFile, "lines": lines})
			return
		}
		for _, l := range lines {
			fmt.Println(colorizeLogLine(l))
		}
		if logsFollow {
			followLog(r.LogFile)
		}
	},
}

func init() {
	f := logsCmd.Flags()
	f.IntVarP(&logsLines, "lines", "n", 20, "number of lines to display")
	f.BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	f.BoolVar(&logsFlush, "flush", false, "truncate the current log file")
}

func flushLog(path string, maxSize int64, maxFiles int) {
	w, err := logwriter.New(path, maxSize, maxFiles)
	if err != nil {
		exitError(err.Error())
	}
	defer w.Close()
	if err := w.Truncate(); err != nil {
		exitError(err.Error())
	}
	if jsonOutput {
		outputJSON(map[string]any{"flushed": path})
		return
	}
	fmt.Printf("%s flushed %s\n", display.Green("✓"), path)
}

// followLog prints lines appended to path until interrupted.
func followLog(path string) {
	f, err := os.Open(path)
	if err != nil {
		exitError(fmt.Sprintf("cannot open log: %v", err))
	}
	defer f.Close()
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		exitError(fmt.Sprintf("cannot seek log: %v", err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	reader := bufio.NewReader(f)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return
		case <-ticker.C:
			for {
				line, err := reader.ReadString('\n')
				if len(line) > 0 {
					fmt.Println(colorizeLogLine(strings.TrimRight(line, "\n")))
				}
				if err != nil {
					break
				}
			}
		}
	}
}

// colorizeLogLine dims the slog timestamp and colors warning and error
// levels.
func colorizeLogLine(line string) string {
	if !strings.HasPrefix(line, "time=") {
		return line
	}
	idx := strings.Index(line, " level=")
	if idx < 0 {
		return line
	}
	rest := line[idx+1:]
	rest = strings.Replace(rest, "level=ERROR", display.Red("level=ERROR"), 1)
	rest = strings.Replace(rest, "level=WARN", display.Yellow("level=WARN"), 1)
	return display.Dim(line[:idx]) + " " + rest
}
