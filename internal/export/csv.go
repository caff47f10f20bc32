package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/sleepclock/internal/routine"
)

// ToCSV writes one row per day. Chore IDs are resolved to their text
// where the chore still exists.
func ToCSV(states []routine.DailyState, chores []routine.Chore, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Date", "Chores Done", "Chores", "Books", "Step", "Ready", "Updated"}); err != nil {
		return err
	}

	names := choreNames(chores)
	for _, d := range states {
		updated := ""
		if !d.UpdatedAt.IsZero() {
			updated = d.UpdatedAt.Local().Format(time.RFC3339)
		}
		row := []string{
			d.Date,
			strconv.Itoa(d.DoneCount(chores)),
			strings.Join(resolveChores(d.ChoresDone, names), "; "),
			strconv.Itoa(d.BooksCount),
			string(d.LastCompletedStep),
			strconv.FormatBool(d.ReadyForSleep()),
			updated,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func choreNames(chores []routine.Chore) map[string]string {
	names := make(map[string]string, len(chores))
	for _, c := range chores {
		names[c.ID] = c.Text
	}
	return names
}

func resolveChores(ids []string, names map[string]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := names[id]; ok {
			out = append(out, n)
			continue
		}
		out = append(out, id)
	}
	return out
}
