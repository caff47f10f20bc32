package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/sleepclock/internal/routine"
)

type jsonExport struct {
	ExportedAt string    `json:"exported_at"`
	Count      int       `json:"count"`
	Days       []jsonDay `json:"days"`
}

type jsonDay struct {
	Date       string   `json:"date"`
	ChoresDone []string `json:"chores_done"`
	DoneCount  int      `json:"done_count"`
	Books      int      `json:"books"`
	Step       string   `json:"step"`
	Ready      bool     `json:"ready_for_sleep"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

func ToJSON(states []routine.DailyState, chores []routine.Chore, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(states),
	}

	names := choreNames(chores)
	for _, d := range states {
		updated := ""
		if !d.UpdatedAt.IsZero() {
			updated = d.UpdatedAt.Local().Format(time.RFC3339)
		}
		export.Days = append(export.Days, jsonDay{
			Date:       d.Date,
			ChoresDone: resolveChores(d.ChoresDone, names),
			DoneCount:  d.DoneCount(chores),
			Books:      d.BooksCount,
			Step:       string(d.LastCompletedStep),
			Ready:      d.ReadyForSleep(),
			UpdatedAt:  updated,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
