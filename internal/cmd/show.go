package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/boxer-emu/boxer/internal/changeset"
	"github.com/boxer-emu/boxer/internal/drive"
	"github.com/boxer-emu/boxer/internal/session"
	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show a session and the changes it made",
	Long: `Show what happened in a boxer session: its drives, the programs it ran and
the files it changed on writable drives.

If no session-id is given, shows the most recent session. IDs may be
abbreviated to any unique prefix.

Examples:
  boxer show
  boxer show 3f2a
  boxer show --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(showCmd)
}

type showOutput struct {
	Session *session.Record             `json:"session"`
	Changes *changeset.SessionChangeset `json:"changes,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	var rec *session.Record
	if len(args) > 0 {
		rec, err = store.Load(args[0])
	} else {
		rec, err = store.Latest()
	}
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("no session found")
	}
	if err != nil {
		return err
	}

	cs, err := changeset.LoadChangeset(store.ChangesPath(rec.ID))
	unfinished := false
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load changes for session %s: %w", rec.ID, err)
		}
		Debug("No changeset for session %s", rec.ID)
		cs = nil
		if rec.Status != session.StatusStopped {
			cs, err = pendingChanges(store, rec)
			if err != nil {
				return err
			}
			unfinished = cs != nil
		}
	}

	if showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(showOutput{Session: rec, Changes: cs})
	}

	printRecord(os.Stdout, rec, time.Now())
	if unfinished {
		_, _ = fmt.Fprintln(os.Stdout, "\nSession did not finish; changes are against its start-of-session snapshots.")
	}
	if cs != nil {
		changeset.PrintSummary(os.Stdout, cs)
	}
	return nil
}

// pendingChanges diffs the writable drives of a session that never finished
// against the snapshots saved when it started. It returns nil when no
// snapshot was saved.
func pendingChanges(store *session.Store, rec *session.Record) (*changeset.SessionChangeset, error) {
	var bindings []drive.Binding
	for _, d := range rec.Drives {
		if d.Kind != drive.KindDirectory.String() {
			continue
		}
		bindings = append(bindings, drive.Binding{
			Key:    d.Key,
			Handle: drive.Handle{Kind: drive.KindDirectory, Source: d.Source, ReadOnly: d.ReadOnly},
		})
	}
	tracker, errs := changeset.Resume(bindings, func(key string) string { return store.SnapshotPath(rec.ID, key) })
	for _, err := range errs {
		Debug("%v", err)
	}
	if tracker.Len() == 0 {
		return nil, nil
	}
	cs, errs := tracker.Finish(rec.ID)
	for _, err := range errs {
		Debug("%v", err)
	}
	return cs, nil
}

func printRecord(w io.Writer, r *session.Record, now time.Time) {
	_, _ = fmt.Fprintf(w, "Session:   %s\n", r.ID)
	status := r.Status
	if r.ExitReason != "" {
		status += " (" + r.ExitReason + ")"
	}
	_, _ = fmt.Fprintf(w, "Status:    %s\n", status)
	_, _ = fmt.Fprintf(w, "Started:   %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "Duration:  %s\n", r.Duration(now).Round(time.Second))
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "Error:     %s\n", r.Error)
	}
	if r.Core != "" {
		speed := fmt.Sprintf("%d cycles", r.Cycles)
		if r.AutoSpeed {
			speed = "max"
		}
		_, _ = fmt.Fprintf(w, "CPU:       %s core, %s\n", r.Core, speed)
	}

	if len(r.ConfigFiles) > 0 {
		_, _ = fmt.Fprintln(w, "\nConfiguration:")
		for _, path := range r.ConfigFiles {
			_, _ = fmt.Fprintf(w, "  %s\n", path)
		}
	}
	if len(r.Drives) > 0 {
		_, _ = fmt.Fprintln(w, "\nDrives:")
		for _, d := range r.Drives {
			mode := "rw"
			if d.ReadOnly {
				mode = "ro"
			}
			_, _ = fmt.Fprintf(w, "  %s: %-8s %s (%s)\n", d.Key, d.Kind, d.Source, mode)
		}
	}
	if len(r.Programs) > 0 {
		_, _ = fmt.Fprintln(w, "\nPrograms:")
		for _, p := range r.Programs {
			_, _ = fmt.Fprintf(w, "  %s\n", p)
		}
	}
	if len(r.Commands) > 0 {
		_, _ = fmt.Fprintf(w, "\nCommands:\n  %s\n", strings.Join(r.Commands, "\n  "))
	}
}
