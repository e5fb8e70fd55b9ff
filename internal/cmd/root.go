package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool

	// debugOut is stderr so debug lines never mix with --json output.
	debugOut io.Writer = os.Stderr
)

// Debug prints a message to stderr if debug mode is enabled
func Debug(format string, args ...interface{}) {
	if debug {
		_, _ = fmt.Fprintf(debugOut, "[DEBUG] "+format+"\n", args...)
	}
}

var rootCmd = &cobra.Command{
	Use:   "boxer",
	Short: "Boxer - DOS sessions from the command line",
	Long: `Boxer runs DOS programs in an emulated shell with host folders as drives.

Start a session:
  boxer run --mount C=~/dos/keen
  boxer run --conf ~/dos/keen/boxer.lua --launch C:\KEEN4.EXE

Review past sessions:
  boxer ps
  boxer show
  boxer prune`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.boxer/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
