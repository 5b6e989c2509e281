// Package cli implements the procwatch command line.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/7c/procwatch/internal/daemon"
	"github.com/7c/procwatch/internal/display"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	// jsonOutput is the global flag for JSON output mode.
	jsonOutput bool
	// configFlag is the global --config path.
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "procwatch",
	Short: display.CBold + "procwatch" + display.CReset + " - evict runaway processes under system pressure",
	Long: `procwatch watches a fixed list of pids. When the system's memory or CPU
utilization is above 90% and a watched process uses more than its limit of
that same resource, the process is sent SIGTERM and a report is delivered.
The watcher stops once every watched process is gone.`,
	SilenceUsage: true,
}

// coloredHelpTemplate is the Cobra help template with ANSI colors.
var coloredHelpTemplate = `{{with .Long}}{{. | trimTrailingWhitespaces}}

{{end}}` +
	`{{if or .Runnable .HasSubCommands}}` + display.CYellow + `Usage:` + display.CReset + `{{end}}
{{if .Runnable}}  {{.UseLine}}{{end}}` +
	`{{if .HasAvailableSubCommands}}  {{.CommandPath}} [command]{{end}}

` +
	`{{if .HasExample}}` + display.CYellow + `Examples:` + display.CReset + `
{{.Example}}

{{end}}` +
	`{{if .HasAvailableSubCommands}}` + display.CYellow + `Available Commands:` + display.CReset + `{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  ` + display.CCyan + `{{rpad .Name .NamePadding}}` + display.CReset + `  {{.Short}}{{end}}{{end}}

{{end}}` +
	`{{if .HasAvailableLocalFlags}}` + display.CYellow + `Flags:` + display.CReset + `
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}` +
	`{{if .HasAvailableInheritedFlags}}` + display.CYellow + `Global Flags:` + display.CReset + `
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}` +
	`{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (default $PROCWATCH_CONFIG or /etc/procwatch.json)")
	rootCmd.SetHelpTemplate(coloredHelpTemplate)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(newconfigCmd)
}

// Execute runs the command line. A --daemon argument bypasses cobra and
// runs the background watcher in this process.
func Execute() {
	if path, ok := daemonArgs(os.Args[1:]); ok {
		daemon.Version = Version
		if err := daemon.Run(path); err != nil {
			fmt.Fprintf(os.Stderr, "procwatch daemon: %v\n", err)
			os.Exit(1)
		}
		return
	}

	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// daemonArgs reports whether args request daemon mode and returns the
// --config value passed along with it.
func daemonArgs(args []string) (string, bool) {
	isDaemon := false
	path := ""
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "--daemon":
			isDaemon = true
		case (a == "--config" || a == "-c") && i+1 < len(args):
			path = args[i+1]
			i++
		case len(a) > 9 && a[:9] == "--config=":
			path = a[9:]
		}
	}
	return path, isDaemon
}

// exitError prints an error message and exits. When jsonOutput is set, it
// writes a JSON object to stdout; otherwise it prints to stderr.
func exitError(msg string) {
	if jsonOutput {
		fmt.Fprintf(os.Stdout, "{\"error\":%q}\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "%s %s\n", display.Red("Error:"), msg)
	}
	os.Exit(1)
}

func outputJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitError(err.Error())
	}
	fmt.Println(string(data))
}
