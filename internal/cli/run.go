package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/7c/procwatch/internal/daemon"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch in the foreground, logging to stderr",
	Long: `Watch the configured processes in the foreground. The command returns
once every watched process has exited or been evicted, or on Ctrl-C.`,
	Example: `  procwatch run -c ./procwatch.yaml`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r := loadConfig()
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: r.LogLevel}))

		c, err := daemon.Build(r, logger)
		if err != nil {
			exitError(err.Error())
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := daemon.Watch(ctx, r, c, logger); err != nil {
			exitError(err.Error())
		}
	},
}
