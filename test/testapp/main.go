// testapp is a controllable victim process for the integration tests.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
)

func main() {
	exitAfter := flag.Duration("exit-after", 0, "exit cleanly after this long (0=never)")
	allocMB := flag.Int("alloc-mb", 0, "allocate and touch this many MB, then hold it")
	cpuBurn := flag.Int("cpu-burn", 0, "number of goroutines burning CPU")
	trapSigterm := flag.Bool("trap-sigterm", false, "ignore SIGTERM")
	readyFile := flag.String("ready-file", "", "write the pid here once set up")
	flag.Parse()

	var hold []byte
	if *allocMB > 0 {
		hold = make([]byte, *allocMB<<20)
		for i := range hold {
			hold[i] = byte(i)
		}
	}

	for i := 0; i < *cpuBurn; i++ {
		go func() {
			for {
				_ = rand.Float64()
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if *readyFile != "" {
		if err := os.WriteFile(*readyFile, []byte(fmt.Sprint(os.Getpid())), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	var exitCh <-chan time.Time
	if *exitAfter > 0 {
		exitCh = time.After(*exitAfter)
	}
	for {
		select {
		case <-exitCh:
			runtime.KeepAlive(hold)
			os.Exit(0)
		case sig := <-sigCh:
			if sig == syscall.SIGTERM && *trapSigterm {
				fmt.Fprintln(os.Stderr, "SIGTERM received, ignoring")
				continue
			}
			runtime.KeepAlive(hold)
			os.Exit(0)
		}
	}
}
