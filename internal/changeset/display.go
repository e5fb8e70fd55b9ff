package changeset

import (
	"fmt"
	"io"
	"strings"
)

const maxDisplayChanges = 20

// PrintSummary prints a human-readable change summary to the writer.
func PrintSummary(w io.Writer, cs *SessionChangeset) {
	if cs == nil {
		return
	}

	if cs.Total() == 0 {
		_, _ = fmt.Fprintln(w, "\nNo changes detected.")
		return
	}

	_, _ = fmt.Fprintln(w, "\nSession Changes")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 40))

	for _, d := range cs.Drives {
		if len(d.Changes) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "\nDrive %s: (%s):\n", d.Key, d.Source)
		printChanges(w, d.Changes)
	}
}

// printChanges prints individual file changes, summarizing if >maxDisplayChanges
func printChanges(w io.Writer, changes []Change) {
	if len(changes) <= maxDisplayChanges {
		for _, c := range changes {
			printChange(w, c)
		}
		return
	}

	// Show the first few, created before modified before deleted
	created, modified, deleted := categorize(changes)
	shown := 0
	for _, group := range [][]Change{created, modified, deleted} {
		for _, c := range group {
			if shown >= 5 {
				break
			}
			printChange(w, c)
			shown++
		}
	}
	_, _ = fmt.Fprintf(w, "  (%d changes total: %d created, %d modified, %d deleted)\n",
		len(changes), len(created), len(modified), len(deleted))
}

// printChange prints a single change line using DOS-style paths
func printChange(w io.Writer, c Change) {
	p := strings.ToUpper(strings.ReplaceAll(c.Path, "/", `\`))
	switch c.Type {
	case Created:
		_, _ = fmt.Fprintf(w, "  + %-40s (%s)\n", p, formatSize(c.NewSize))
	case Modified:
		_, _ = fmt.Fprintf(w, "  ~ %-40s (%s → %s)\n", p, formatSize(c.OldSize), formatSize(c.NewSize))
	case Deleted:
		_, _ = fmt.Fprintf(w, "  - %s\n", p)
	}
}

// categorize splits changes into created/modified/deleted slices
func categorize(changes []Change) (created, modified, deleted []Change) {
	for _, c := range changes {
		switch c.Type {
		case Created:
			created = append(created, c)
		case Modified:
			modified = append(modified, c)
		case Deleted:
			deleted = append(deleted, c)
		}
	}
	return
}

// formatSize returns a human-readable file size
func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
