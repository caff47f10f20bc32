// Package cli wires the sleepclock commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/sleepclock/internal/audio"
	"github.com/sadopc/sleepclock/internal/config"
	"github.com/sadopc/sleepclock/internal/engine"
	"github.com/sadopc/sleepclock/internal/schedule"
	"github.com/sadopc/sleepclock/internal/store"
	"github.com/sadopc/sleepclock/internal/tui"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sleepclock",
		Short: "A bedtime clock that tells children when to sleep and when to get up.",
		Long: `sleepclock shows a child whether it is time to get ready for bed, sleep,
or get up, walks them through their bedtime jobs and books, and keeps the
parent settings behind a PIN.

Run without a command to start the full-screen clock.`,
		SilenceUsage: true,
		RunE:         runClock,
	}
	config.Flags(cmd.PersistentFlags())

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addSchedule(topLevel)
	addHistory(topLevel)
	addPin(topLevel)
	addVersion(topLevel)
}

// env is what every command needs: resolved config, an open store and
// the active profile.
type env struct {
	cfg     config.Config
	store   *store.Store
	profile *store.Profile
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	p, err := st.EnsureProfile(cfg.Profile)
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := st.SetMeta(store.MetaCurrentProfile, p.ID); err != nil {
		st.Close()
		return nil, err
	}
	return &env{cfg: cfg, store: st, profile: p}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

func (e *env) clock() *schedule.Clock {
	return schedule.SystemClock(e.cfg.At)
}

// engine loads the profile into an engine with a synchronous executor.
func (e *env) engine() (*engine.Engine, *engine.Executor, error) {
	eng, err := engine.Bootstrap(e.store, e.profile.ID, e.clock())
	if err != nil {
		return nil, nil, err
	}
	return eng, engine.NewExecutor(e.store, nil), nil
}

func runClock(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := os.MkdirAll(filepath.Dir(e.cfg.LogPath), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := tea.LogToFile(e.cfg.LogPath, "sleepclock")
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	eng, err := engine.Bootstrap(e.store, e.profile.ID, e.clock())
	if err != nil {
		return err
	}
	player := audio.NewPlayer(os.Stderr)
	x := engine.NewExecutor(e.store, player)

	ctx, cancel := context.WithCancel(cmd.Context())
	done := make(chan struct{})
	go func() {
		x.Run(ctx)
		close(done)
	}()

	app := tui.NewApp(tui.Deps{
		Store:    e.store,
		Engine:   eng,
		Executor: x,
		Player:   player,
		Profile:  e.profile,
		Poll:     e.cfg.Poll,
	})
	_, runErr := tea.NewProgram(app, tea.WithAltScreen(), tea.WithReportFocus()).Run()

	cancel()
	<-done
	x.Drain(context.Background())
	return runErr
}
