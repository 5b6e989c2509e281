package cli

import (
	"fmt"
	"os"

	"github.com/7c/procwatch/internal/config"
)

// loadConfig resolves the configuration selected by --config and the
// environment, printing warnings to stderr. It exits on error.
func loadConfig() *config.Resolved {
	r, warnings, err := config.Open(configFlag)
	if err != nil {
		exitError(err.Error())
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
	}
	return r
}
