package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/sadopc/sleepclock/internal/export"
	"github.com/sadopc/sleepclock/internal/pin"
	"github.com/sadopc/sleepclock/internal/schedule"
)

func addSchedule(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show, check, import or export the day's schedule.",
	}
	addScheduleShow(cmd)
	addScheduleCheck(cmd)
	addScheduleImport(cmd)
	addScheduleExport(cmd)
	topLevel.AddCommand(cmd)
}

func addScheduleShow(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the schedule with the active block marked.",
		Example: `
sleepclock schedule show
sleepclock schedule show --at 18:45
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			s, err := e.store.LoadSettings(e.profile.ID)
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("no settings for profile %q", e.profile.Name)
			}
			clock := e.clock()
			printSchedule(cmd, s.Schedule, clock.MinuteOfDay())
			return nil
		},
	}
	parent.AddCommand(cmd)
}

func printSchedule(cmd *cobra.Command, blocks []schedule.Block, now int) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	active, hasActive := schedule.Active(blocks, now)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("", bold.Sprint("Mode"), bold.Sprint("Start"), bold.Sprint("End"), bold.Sprint("Length"))
	for _, b := range schedule.Sorted(blocks) {
		marker := ""
		if hasActive && b == active {
			marker = color.New(color.FgGreen, color.Bold).Sprint("▶")
		}
		length := "?"
		if n, err := b.Duration(); err == nil {
			length = fmt.Sprintf("%dh%02dm", n/60, n%60)
		}
		tbl.AddRow(marker, string(b.Mode), b.Start, b.End, length)
	}
	tbl.RightAlign(4)
	_, _ = fmt.Fprintln(out, tbl)

	mode := schedule.ResolveMinute(blocks, now)
	_, _ = fmt.Fprintf(out, "\nNow %s: %s\n", schedule.MinutesToTime(now), bold.Sprint(mode))
	if next, ok := schedule.NextTransition(blocks, now); ok {
		_, _ = faint.Fprintf(out, "Next %s at %s, in %dh%02dm\n", next.Mode, next.At, next.In/60, next.In%60)
	}
	if res := schedule.Validate(blocks); !res.Valid {
		printProblems(cmd, res.Errors)
	}
}

func printProblems(cmd *cobra.Command, problems []string) {
	red := color.New(color.FgRed)
	for _, p := range problems {
		_, _ = red.Fprintf(cmd.ErrOrStderr(), "  ✗ %s\n", p)
	}
}

func addScheduleCheck(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a YAML schedule file without applying it.",
		Example: `
sleepclock schedule check weekend.yaml
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blocks, err := export.ReadSchedule(args[0])
			if err != nil {
				return err
			}
			if err := checkBlocks(cmd, blocks); err != nil {
				return err
			}
			_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s covers the whole day with %d blocks\n", args[0], len(blocks))
			return nil
		},
	}
	parent.AddCommand(cmd)
}

// checkBlocks prints every problem and returns the validation error.
func checkBlocks(cmd *cobra.Command, blocks []schedule.Block) error {
	err := schedule.Validate(blocks).Err()
	var inv *schedule.InvalidError
	if errors.As(err, &inv) {
		printProblems(cmd, inv.Problems)
	}
	return err
}

func addScheduleImport(parent *cobra.Command) {
	var code string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the schedule with a YAML file. Requires the parent PIN.",
		Example: `
sleepclock schedule import weekend.yaml --pin 1234
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blocks, err := export.ReadSchedule(args[0])
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			eng, x, err := e.engine()
			if err != nil {
				return err
			}
			next := eng.Settings()
			if next.PinHash == "" {
				return fmt.Errorf("%w: run 'sleepclock pin set' first", pin.ErrNotSet)
			}
			if err := pin.Verify(code, next.PinHash); err != nil {
				return err
			}
			if err := checkBlocks(cmd, blocks); err != nil {
				return err
			}

			next.Schedule = blocks
			effects, err := eng.ReplaceSettings(next)
			if err != nil {
				return err
			}
			for _, eff := range effects {
				if err := x.Execute(context.Background(), eff); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d blocks for %s\n", len(blocks), e.profile.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "pin", "", "parent PIN")
	_ = cmd.MarkFlagRequired("pin")
	parent.AddCommand(cmd)
}

func addScheduleExport(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the schedule as YAML to FILE or stdout.",
		Example: `
sleepclock schedule export
sleepclock schedule export schedule.yaml
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			s, err := e.store.LoadSettings(e.profile.ID)
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("no settings for profile %q", e.profile.Name)
			}
			if len(args) == 0 {
				return export.EncodeSchedule(cmd.OutOrStdout(), s.Schedule)
			}
			if err := export.WriteSchedule(s.Schedule, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	}
	parent.AddCommand(cmd)
}
