// Command mouthsyncctl runs the viseme engine, the Hangul converter and the
// rule-based pronunciation scorer locally, without a server.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "mouthsyncctl",
		Short:         "Inspect mouth-shape resolution and pronunciation scoring from the shell",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), verbose))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newClassifyCmd(),
		newTokenizeCmd(),
		newFrameCmd(),
		newTimelineCmd(),
		newIPACmd(),
		newEvalCmd(),
	)
	return root
}

// newLogger renders slog records through charmbracelet/log.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "mouthsyncctl",
		ReportTimestamp: verbose,
	})
	return slog.New(handler)
}
