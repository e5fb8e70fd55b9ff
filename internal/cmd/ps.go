package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/boxer-emu/boxer/internal/session"
	"github.com/spf13/cobra"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List sessions",
	Long:  `List recorded Boxer sessions, most recent first.`,
	RunE:  runPs,
}

func init() {
	rootCmd.AddCommand(psCmd)
}

func runPs(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	records, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No sessions.")
		return nil
	}

	printRecords(os.Stdout, records, time.Now())
	return nil
}

func printRecords(out io.Writer, records []*session.Record, now time.Time) {
	// Create tabwriter for aligned output
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tDURATION\tLAST PROGRAM")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t--------\t------------")

	for _, r := range records {
		status := r.Status
		if r.ExitReason != "" {
			status += " (" + r.ExitReason + ")"
		}
		last := "-"
		if n := len(r.Programs); n > 0 {
			last = r.Programs[n-1]
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			status,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Duration(now).Round(time.Second),
			last,
		)
	}

	_ = w.Flush()
}
