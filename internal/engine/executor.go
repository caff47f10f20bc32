package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/store"
)

// Persistence stores settings and daily routine records.
// *store.Store satisfies it.
type Persistence interface {
	LoadSettings(profileID string) (*store.Settings, error)
	SaveSettings(s *store.Settings) error
	LoadDailyState(profileID, date string) (*routine.DailyState, error)
	SaveDailyState(d routine.DailyState) error
}

// Player makes the chime and celebration sounds.
type Player interface {
	PlayChime(volume int) error
	PlayCelebration(volume int) error
}

// Failure wraps an error raised while carrying out an effect.
type Failure struct {
	Effect Effect
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%T: %v", f.Effect, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Executor performs effects against the outside world. A nil Player
// silences sounds.
type Executor struct {
	Store  Persistence
	Player Player
	Logger *log.Logger

	queue chan []Effect
}

func NewExecutor(p Persistence, player Player) *Executor {
	return &Executor{Store: p, Player: player, queue: make(chan []Effect, 64)}
}

// Enqueue hands effects to Run without waiting for them to finish. Order
// across calls is preserved.
func (x *Executor) Enqueue(effects ...Effect) {
	if len(effects) == 0 {
		return
	}
	x.queue <- effects
}

// Run dispatches queued effects one batch at a time until ctx is done.
func (x *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case effects := <-x.queue:
			x.Dispatch(ctx, effects...)
		}
	}
}

// Drain dispatches whatever is queued now and returns. Call it after Run
// has stopped to flush pending writes.
func (x *Executor) Drain(ctx context.Context) {
	for {
		select {
		case effects := <-x.queue:
			x.Dispatch(ctx, effects...)
		default:
			return
		}
	}
}

// Execute performs one effect. UI effects such as ShowStoryChooser are
// not its business and succeed trivially.
func (x *Executor) Execute(ctx context.Context, eff Effect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	switch e := eff.(type) {
	case SaveDailyState:
		err = x.Store.SaveDailyState(e.State)
	case SaveSettings:
		err = x.Store.SaveSettings(e.Settings)
	case PlayChime:
		if x.Player != nil {
			err = x.Player.PlayChime(e.Volume)
		}
	case PlayCelebration:
		if x.Player != nil {
			err = x.Player.PlayCelebration(e.Volume)
		}
	}
	if err != nil {
		return &Failure{Effect: eff, Err: err}
	}
	return nil
}

// Dispatch executes effects in order and logs failures instead of
// returning them. Engine state is never rolled back.
func (x *Executor) Dispatch(ctx context.Context, effects ...Effect) {
	for _, eff := range effects {
		if err := x.Execute(ctx, eff); err != nil {
			x.logf("side effect failed: %v", err)
		}
	}
}

func (x *Executor) logf(format string, args ...any) {
	if x.Logger != nil {
		x.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
