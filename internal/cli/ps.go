package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/7c/procwatch/internal/display"
	"github.com/7c/procwatch/internal/sample"
)

var (
	psSort   string
	psLimit  int
	psUser   string
	psMatch  string
	psSource string
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List running processes to pick pids to watch",
	Long: `List every visible process, heaviest first, so pids can be copied into
the processes section of the config. Does not need a config file.`,
	Example: `  # Top 20 by memory
  procwatch ps

  # Everything owned by www-data whose command mentions php
  procwatch ps --user www-data --match php -n 0`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		src, err := sample.NewSource(psSource)
		if err != nil {
			exitError(err.Error())
		}
		snaps, err := sample.List(src)
		if err != nil {
			exitError(err.Error())
		}
		snaps, err = filterListing(snaps, psSort, psUser, psMatch, psLimit)
		if err != nil {
			exitError(err.Error())
		}

		if jsonOutput {
			outputJSON(snaps)
			return
		}
		display.RenderListing(os.Stdout, snaps)
	},
}

func init() {
	f := psCmd.Flags()
	f.StringVarP(&psSort, "sort", "s", "mem", "sort by mem, cpu, rss or pid")
	f.IntVarP(&psLimit, "lines", "n", 20, "number of processes to show (0 = all)")
	f.StringVarP(&psUser, "user", "u", "", "only processes owned by this user")
	f.StringVarP(&psMatch, "match", "m", "", "only processes whose command contains this text")
	f.StringVar(&psSource, "source", sample.SourceNative, "process source: native or ps")
}

// filterListing applies the ps command's filters, ordering and limit.
func filterListing(snaps []sample.Snapshot, by, user, match string, limit int) ([]sample.Snapshot, error) {
	var less func(a, b sample.Snapshot) bool
	switch by {
	case "mem":
		less = func(a, b sample.Snapshot) bool { return a.Mem > b.Mem }
	case "cpu":
		less = func(a, b sample.Snapshot) bool { return a.CPU > b.CPU }
	case "rss":
		less = func(a, b sample.Snapshot) bool { return a.RSS > b.RSS }
	case "pid":
		less = func(a, b sample.Snapshot) bool { return a.PID < b.PID }
	default:
		return nil, fmt.Errorf("unknown sort key %q (want mem, cpu, rss or pid)", by)
	}

	out := make([]sample.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if user != "" && s.User != user {
			continue
		}
		if match != "" && !strings.Contains(s.Command, match) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
