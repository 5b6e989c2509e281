// Package daemon hosts the watch loop as a detached background service
// and controls it through its pidfile.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/7c/procwatch/internal/config"
	"github.com/7c/procwatch/internal/logwriter"
)

// Version is set at build time.
var Version = "dev"

// daemonUmask keeps the pidfile and rotated logs from being group or
// world writable.
const daemonUmask = 0o022

// setUmask applies daemonUmask and returns the previous mask.
func setUmask() int { return unix.Umask(daemonUmask) }

// Run is the daemon-mode entry point. It logs to the configured file,
// records its pid and watches until the watch-set drains or SIGTERM or
// SIGINT arrives. SIGHUP rotates the log.
func Run(configPath string) error {
	setUmask()
	r, warnings, err := config.Open(configPath)
	if err != nil {
		return err
	}

	logw, err := logwriter.New(r.LogFile, r.LogMaxSize, r.LogMaxFiles)
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}
	defer logw.Close()
	logger := slog.New(slog.NewTextHandler(logw, &slog.HandlerOptions{Level: r.LogLevel}))

	for _, w := range warnings {
		logger.Warn("config", "warning", w)
	}

	if err := WritePID(r.PIDFile); err != nil {
		logger.Error("cannot write PID file", "error", err)
		return err
	}
	defer os.Remove(r.PIDFile)

	c, err := Build(r, logger)
	if err != nil {
		logger.Error("cannot start watch", "error", err)
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := logw.Rotate(); err != nil {
					logger.Error("log rotation failed", "error", err)
				}
			}
		}
	}()

	logger.Info("daemon started", "pid", os.Getpid(), "config", r.Path, "version", Version)
	err = Watch(ctx, r, c, logger)
	if ctx.Err() != nil {
		logger.Info("received shutdown signal")
	}
	logger.Info("daemon stopped")
	return err
}
