package cmd

import (
	"fmt"

	"github.com/boxer-emu/boxer/internal/session"
	"github.com/spf13/cobra"
)

var pruneAll bool

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove finished sessions",
	Long: `Remove the records and change summaries of stopped sessions.

With --all, sessions still marked running are removed too. A session is left
marked running if its boxer process was killed.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().BoolVarP(&pruneAll, "all", "a", false, "remove all sessions (including running)")
}

func runPrune(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to access session store: %w", err)
	}

	removed, err := prune(store, pruneAll)
	if err != nil {
		return err
	}

	if removed == 0 {
		fmt.Println("No sessions to remove.")
	} else {
		fmt.Printf("Removed %d session(s).\n", removed)
	}
	return nil
}

func prune(store *session.Store, all bool) (int, error) {
	records, err := store.List()
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	removed := 0
	for _, r := range records {
		if !all && r.Status != session.StatusStopped {
			continue
		}
		if err := store.Delete(r.ID); err != nil {
			fmt.Printf("Warning: failed to delete session %s: %v\n", r.ID, err)
			continue
		}
		Debug("Removed session: %s", r.ID)
		removed++
	}
	return removed, nil
}
