package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/sadopc/sleepclock/internal/export"
	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/schedule"
)

func addHistory(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, export or prune recorded bedtime routines.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			states, err := e.store.ListDailyStates(e.profile.ID, "", "")
			if err != nil {
				return err
			}
			s, err := e.store.LoadSettings(e.profile.ID)
			if err != nil {
				return err
			}
			var chores []routine.Chore
			if s != nil {
				chores = s.Chores
			}
			printHistory(cmd, states, chores)
			return nil
		},
	}
	addHistoryExport(cmd)
	addHistoryPrune(cmd)
	topLevel.AddCommand(cmd)
}

func printHistory(cmd *cobra.Command, states []routine.DailyState, chores []routine.Chore) {
	out := cmd.OutOrStdout()
	if len(states) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(out, " none")
		return
	}
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Date"), bold.Sprint("Jobs"), bold.Sprint("Books"), bold.Sprint("Step"), bold.Sprint("Ready"))
	for _, d := range states {
		ready := ""
		if d.ReadyForSleep() {
			ready = color.New(color.FgGreen).Sprint("✓")
		}
		tbl.AddRow(d.Date,
			fmt.Sprintf("%d/%d", d.DoneCount(chores), len(chores)),
			fmt.Sprintf("%d/%d", d.BooksCount, routine.MaxBooks),
			string(d.LastCompletedStep),
			ready,
		)
	}
	_, _ = fmt.Fprintln(out, tbl)
}

func addHistoryExport(parent *cobra.Command) {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every recorded day as CSV or JSON.",
		Example: `
sleepclock history export
sleepclock history export --format json --out history.json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q, want csv or json", format)
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			states, err := e.store.ListDailyStates(e.profile.ID, "", "")
			if err != nil {
				return err
			}
			s, err := e.store.LoadSettings(e.profile.ID)
			if err != nil {
				return err
			}
			var chores []routine.Chore
			if s != nil {
				chores = s.Chores
			}

			if out == "" {
				out = fmt.Sprintf("sleepclock-history-%s.%s", e.clock().Today(), format)
			}
			if format == "csv" {
				err = export.ToCSV(states, chores, out)
			} else {
				err = export.ToJSON(states, chores, out)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d days to %s\n", len(states), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format. One of 'csv' or 'json'.")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default sleepclock-history-DATE.FORMAT)")
	parent.AddCommand(cmd)
}

func addHistoryPrune(parent *cobra.Command) {
	keepDays := 90
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete recorded days older than --keep-days.",
		Example: `
sleepclock history prune --keep-days 30
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keepDays < 1 {
				return fmt.Errorf("keep-days must be at least 1, got %d", keepDays)
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			cutoff := schedule.DateString(e.clock().Current().AddDate(0, 0, 1-keepDays))
			n, err := e.store.PruneDailyStates(e.profile.ID, cutoff)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d days before %s\n", n, cutoff)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepDays, "keep-days", keepDays, "Number of days to keep, today included.")
	parent.AddCommand(cmd)
}
