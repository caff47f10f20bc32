// Package engine turns the schedule and the day's routine into mode
// transitions and the side effects they trigger.
package engine

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/schedule"
	"github.com/sadopc/sleepclock/internal/store"
)

var ErrUnknownTonie = errors.New("unknown story figure")

// Transition records a change of mode.
type Transition struct {
	Previous   schedule.Mode
	Current    schedule.Mode
	OccurredAt time.Time
}

// Engine owns the mode and routine state. All methods are safe for
// concurrent use. Writers of settings hold mu; readers load the pointer
// without it, so a Tick never sees a half-updated schedule.
type Engine struct {
	settings atomic.Pointer[store.Settings]

	mu       sync.Mutex
	clock    *schedule.Clock
	lastMode schedule.Mode
	last     *Transition
	daily    routine.DailyState
	primed   bool
}

// New builds an engine. The first Tick reports a transition unless the
// schedule resolves to the fallback mode.
func New(settings *store.Settings, daily routine.DailyState, clock *schedule.Clock) *Engine {
	if clock == nil {
		clock = schedule.SystemClock("")
	}
	e := &Engine{
		clock:    clock,
		lastMode: schedule.Fallback,
		daily:    daily.Clone(),
	}
	e.settings.Store(settings.Clone())
	return e
}

// Evaluate ticks at the clock's current instant.
func (e *Engine) Evaluate() (*Transition, []Effect) {
	e.mu.Lock()
	now := e.clock.Current()
	e.mu.Unlock()
	return e.Tick(now)
}

// Tick resolves the mode at now. It is idempotent: while the mode stays
// the same it returns nil, nil, whichever driver calls it.
func (e *Engine) Tick(now time.Time) (*Transition, []Effect) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.settings.Load()
	mode := schedule.ResolveMinute(s.Schedule, e.clock.MinuteAt(now))
	if mode == e.lastMode {
		return nil, nil
	}

	t := &Transition{Previous: e.lastMode, Current: mode, OccurredAt: now}
	e.lastMode = mode
	e.last = t

	var effects []Effect
	if mode == schedule.GetReady {
		if today := schedule.DateString(now); e.daily.Date != today {
			e.daily = routine.Reset(e.daily, today)
			effects = append(effects, SaveDailyState{State: e.daily.Clone()})
		}
	}
	if (mode == schedule.GetReady || mode == schedule.Sleep) && s.SoundEnabled && e.primed {
		effects = append(effects, PlayChime{Volume: s.SoundVolume})
	}
	if mode == schedule.Sleep && s.TonieEnabled && len(s.Tonies) > 0 && !e.daily.ReadyForSleep() {
		effects = append(effects, ShowStoryChooser{
			Tonies:      slices.Clone(s.Tonies),
			LastTonieID: s.LastTonieID,
			Duration:    time.Duration(s.TonieChooserDuration) * time.Second,
		})
	}
	return t, effects
}

// ReplaceSettings swaps in s after validating its schedule. An invalid
// schedule leaves the current settings active.
func (e *Engine) ReplaceSettings(s *store.Settings) ([]Effect, error) {
	if err := schedule.Validate(s.Schedule).Err(); err != nil {
		return nil, err
	}
	next := s.Clone()
	e.mu.Lock()
	e.settings.Store(next)
	e.mu.Unlock()
	return []Effect{SaveSettings{Settings: next.Clone()}}, nil
}

// SetClockOverride replaces the HH:mm test override; "" restores the
// wall clock.
func (e *Engine) SetClockOverride(override string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := *e.clock
	c.Override = override
	e.clock = &c
}

func (e *Engine) ToggleChore(id string) []Effect {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.daily.ToggleChore(id)
	return e.saveDaily()
}

// ClaimReward records the reward and celebrates it.
func (e *Engine) ClaimReward() ([]Effect, error) {
	s := e.settings.Load()
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.daily.ClaimReward(s.Chores); err != nil {
		return nil, err
	}
	effects := e.saveDaily()
	if s.SoundEnabled && e.primed {
		effects = append(effects, PlayCelebration{Volume: s.SoundVolume})
	}
	return effects, nil
}

// AddBook counts a finished book; the last one also marks the child
// ready for sleep. Past the last book nothing changes and no effects are
// returned.
func (e *Engine) AddBook() []Effect {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.daily.AddBook() {
		return nil
	}
	if e.daily.BooksCount == routine.MaxBooks {
		_ = e.daily.MarkReadyForSleep()
	}
	return e.saveDaily()
}

func (e *Engine) MarkReadyForSleep() ([]Effect, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.daily.MarkReadyForSleep(); err != nil {
		return nil, err
	}
	return e.saveDaily(), nil
}

// SelectStory remembers the chosen figure for tomorrow's default.
func (e *Engine) SelectStory(tonieID string) ([]Effect, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.settings.Load()
	if !slices.ContainsFunc(cur.Tonies, func(t store.Tonie) bool { return t.ID == tonieID }) {
		return nil, ErrUnknownTonie
	}
	next := cur.Clone()
	next.LastTonieID = tonieID
	e.settings.Store(next)
	return []Effect{SaveSettings{Settings: next.Clone()}}, nil
}

// Now is the clock's current instant.
func (e *Engine) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Current()
}

// TimeOfDay is the clock's HH:mm, honouring the override.
func (e *Engine) TimeOfDay() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Time()
}

func (e *Engine) ClockOverride() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Override
}

// PrimeAudio records the user gesture that unlocks sounds.
func (e *Engine) PrimeAudio() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.primed = true
}

func (e *Engine) AudioPrimed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.primed
}

// Mode is the mode recorded by the latest Tick.
func (e *Engine) Mode() schedule.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastMode
}

// LastTransition is the most recent change of mode, or nil.
func (e *Engine) LastTransition() *Transition {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return nil
	}
	t := *e.last
	return &t
}

// Settings returns a copy of the active settings.
func (e *Engine) Settings() *store.Settings {
	return e.settings.Load().Clone()
}

// Daily returns a copy of the current routine state.
func (e *Engine) Daily() routine.DailyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.daily.Clone()
}

// NextTransition reports when the active block ends.
func (e *Engine) NextTransition(now time.Time) (schedule.Transition, bool) {
	e.mu.Lock()
	minute := e.clock.MinuteAt(now)
	e.mu.Unlock()
	return schedule.NextTransition(e.settings.Load().Schedule, minute)
}

func (e *Engine) saveDaily() []Effect {
	return []Effect{SaveDailyState{State: e.daily.Clone()}}
}
