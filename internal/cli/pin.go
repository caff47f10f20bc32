package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/sleepclock/internal/pin"
)

func addPin(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the parent PIN.",
	}

	var current, next string
	set := &cobra.Command{
		Use:   "set",
		Short: "Set or change the 4-digit parent PIN.",
		Example: `
sleepclock pin set --new 1234
sleepclock pin set --current 1234 --new 5678
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !pin.ValidFormat(next) {
				return pin.ErrInvalidFormat
			}

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
			if s.PinHash != "" {
				if err := pin.Verify(current, s.PinHash); err != nil {
					return fmt.Errorf("current PIN: %w", err)
				}
			}

			if s.PinHash, err = pin.Hash(next); err != nil {
				return err
			}
			if err := e.store.SaveSettings(s); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "PIN set for %s\n", e.profile.Name)
			return nil
		},
	}
	set.Flags().StringVar(&next, "new", "", "new PIN")
	set.Flags().StringVar(&current, "current", "", "current PIN, required once a PIN is set")
	_ = set.MarkFlagRequired("new")

	cmd.AddCommand(set)
	topLevel.AddCommand(cmd)
}
