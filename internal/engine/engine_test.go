package engine

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/schedule"
	"github.com/sadopc/sleepclock/internal/store"
)

type fakeStore struct {
	settings map[string]*store.Settings
	daily    map[string]routine.DailyState
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings: map[string]*store.Settings{},
		daily:    map[string]routine.DailyState{},
	}
}

func (f *fakeStore) LoadSettings(profileID string) (*store.Settings, error) {
	if s, ok := f.settings[profileID]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (f *fakeStore) SaveSettings(s *store.Settings) error {
	if f.err != nil {
		return f.err
	}
	f.settings[s.ProfileID] = s.Clone()
	return nil
}

func (f *fakeStore) LoadDailyState(profileID, date string) (*routine.DailyState, error) {
	if d, ok := f.daily[profileID+"/"+date]; ok {
		d = d.Clone()
		return &d, nil
	}
	return nil, nil
}

func (f *fakeStore) SaveDailyState(d routine.DailyState) error {
	if f.err != nil {
		return f.err
	}
	f.daily[d.ProfileID+"/"+d.Date] = d.Clone()
	return nil
}

type fakePlayer struct {
	chimes, celebrations []int
}

func (p *fakePlayer) PlayChime(volume int) error {
	p.chimes = append(p.chimes, volume)
	return nil
}

func (p *fakePlayer) PlayCelebration(volume int) error {
	p.celebrations = append(p.celebrations, volume)
	return nil
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, time.Local)
}

func newTestEngine(t *testing.T, mutate func(*store.Settings)) *Engine {
	t.Helper()
	s := store.DefaultSettings("p1")
	if mutate != nil {
		mutate(s)
	}
	return New(s, routine.New("p1", "2026-10-15"), &schedule.Clock{Now: func() time.Time { return at(15, 12, 0) }})
}

func countEffects[T Effect](effects []Effect) int {
	n := 0
	for _, e := range effects {
		if _, ok := e.(T); ok {
			n++
		}
	}
	return n
}

// ============================================================
// Tick
// ============================================================

func TestTickFallbackIsNotATransition(t *testing.T) {
	e := newTestEngine(t, nil)
	tr, effects := e.Tick(at(15, 12, 0))
	if tr != nil || effects != nil {
		t.Fatalf("WAKE at start should not transition: %+v %v", tr, effects)
	}
	if e.Mode() != schedule.Wake {
		t.Fatalf("mode = %s", e.Mode())
	}
}

func TestTickIsIdempotent(t *testing.T) {
	e := newTestEngine(t, nil)
	tr, _ := e.Tick(at(15, 18, 45))
	if tr == nil || tr.Previous != schedule.Wake || tr.Current != schedule.GetReady {
		t.Fatalf("unexpected transition: %+v", tr)
	}
	if !tr.OccurredAt.Equal(at(15, 18, 45)) {
		t.Fatalf("OccurredAt = %v", tr.OccurredAt)
	}
	for i := 0; i < 3; i++ {
		tr, effects := e.Tick(at(15, 18, 45+i))
		if tr != nil || effects != nil {
			t.Fatalf("repeat tick %d produced %+v %v", i, tr, effects)
		}
	}
	if last := e.LastTransition(); last == nil || last.Current != schedule.GetReady {
		t.Fatalf("LastTransition = %+v", last)
	}
}

func TestTickHandlesBackwardClockJump(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Tick(at(15, 19, 5))
	tr, _ := e.Tick(at(15, 18, 45))
	if tr == nil || tr.Previous != schedule.Sleep || tr.Current != schedule.GetReady {
		t.Fatalf("unexpected transition: %+v", tr)
	}
}

func TestTickHandlesForwardJumpAcrossSeveralBlocks(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Tick(at(15, 18, 45))
	tr, _ := e.Tick(at(16, 6, 45))
	if tr == nil || tr.Previous != schedule.GetReady || tr.Current != schedule.AlmostWake {
		t.Fatalf("unexpected transition: %+v", tr)
	}
}

func TestDayRolloverOnGetReady(t *testing.T) {
	prev := routine.New("p1", "2026-10-14")
	prev.ToggleChore("chore-1")
	prev.AddBook()
	e := New(store.DefaultSettings("p1"), prev, nil)

	_, effects := e.Tick(at(15, 18, 45))
	var saved *routine.DailyState
	for _, eff := range effects {
		if s, ok := eff.(SaveDailyState); ok {
			saved = &s.State
		}
	}
	if saved == nil {
		t.Fatal("expected a SaveDailyState effect")
	}
	if saved.Date != "2026-10-15" || saved.BooksCount != 0 || len(saved.ChoresDone) != 0 {
		t.Fatalf("unexpected fresh state: %+v", saved)
	}
	if d := e.Daily(); d.Date != "2026-10-15" {
		t.Fatalf("engine daily date = %s", d.Date)
	}
	if prev.Date != "2026-10-14" || prev.BooksCount != 1 {
		t.Fatal("previous day's record was modified")
	}
}

func TestNoRolloverWhenDateMatches(t *testing.T) {
	d := routine.New("p1", "2026-10-15")
	d.AddBook()
	e := New(store.DefaultSettings("p1"), d, nil)
	_, effects := e.Tick(at(15, 18, 45))
	if countEffects[SaveDailyState](effects) != 0 {
		t.Fatalf("same-day GET_READY must not reset: %v", effects)
	}
	if e.Daily().BooksCount != 1 {
		t.Fatal("progress lost")
	}
}

func TestNoRolloverOutsideGetReady(t *testing.T) {
	e := New(store.DefaultSettings("p1"), routine.New("p1", "2026-10-14"), nil)
	_, effects := e.Tick(at(15, 19, 5))
	if countEffects[SaveDailyState](effects) != 0 {
		t.Fatal("only GET_READY starts a new day")
	}
}

func TestChimeRules(t *testing.T) {
	t.Run("unprimed stays silent", func(t *testing.T) {
		e := newTestEngine(t, nil)
		_, effects := e.Tick(at(15, 18, 45))
		if countEffects[PlayChime](effects) != 0 {
			t.Fatal("chime before priming")
		}
	})

	t.Run("primed chimes on GET_READY and SLEEP only", func(t *testing.T) {
		e := newTestEngine(t, nil)
		e.PrimeAudio()
		times := []time.Time{at(15, 18, 45), at(15, 19, 5), at(16, 6, 35), at(16, 7, 5)}
		want := []int{1, 1, 0, 0}
		for i, now := range times {
			_, effects := e.Tick(now)
			if got := countEffects[PlayChime](effects); got != want[i] {
				t.Fatalf("tick %d (%s): %d chimes, want %d", i, e.Mode(), got, want[i])
			}
		}
	})

	t.Run("sound disabled", func(t *testing.T) {
		e := newTestEngine(t, func(s *store.Settings) { s.SoundEnabled = false })
		e.PrimeAudio()
		_, effects := e.Tick(at(15, 18, 45))
		if countEffects[PlayChime](effects) != 0 {
			t.Fatal("chime with sound disabled")
		}
	})

	t.Run("volume is carried", func(t *testing.T) {
		e := newTestEngine(t, func(s *store.Settings) { s.SoundVolume = 70 })
		e.PrimeAudio()
		_, effects := e.Tick(at(15, 19, 5))
		for _, eff := range effects {
			if c, ok := eff.(PlayChime); ok && c.Volume != 70 {
				t.Fatalf("volume = %d", c.Volume)
			}
		}
	})
}

func TestStoryChooserOncePerSleepEntry(t *testing.T) {
	e := newTestEngine(t, func(s *store.Settings) { s.TonieChooserDuration = 10 })
	_, effects := e.Tick(at(15, 19, 5))
	if countEffects[ShowStoryChooser](effects) != 1 {
		t.Fatalf("expected chooser on SLEEP entry: %v", effects)
	}
	for _, eff := range effects {
		if c, ok := eff.(ShowStoryChooser); ok {
			if c.Duration != 10*time.Second || len(c.Tonies) != 4 {
				t.Fatalf("unexpected chooser: %+v", c)
			}
		}
	}
	_, effects = e.Tick(at(15, 21, 0))
	if countEffects[ShowStoryChooser](effects) != 0 {
		t.Fatal("chooser shown twice in the same SLEEP")
	}

	e.Tick(at(16, 6, 45))
	_, effects = e.Tick(at(16, 19, 5))
	if countEffects[ShowStoryChooser](effects) != 1 {
		t.Fatal("chooser should return on the next SLEEP entry")
	}
}

func TestStoryChooserSuppressed(t *testing.T) {
	t.Run("ready for sleep", func(t *testing.T) {
		d := routine.New("p1", "2026-10-15")
		for i := 0; i < routine.MaxBooks; i++ {
			d.AddBook()
		}
		if err := d.MarkReadyForSleep(); err != nil {
			t.Fatal(err)
		}
		e := New(store.DefaultSettings("p1"), d, nil)
		_, effects := e.Tick(at(15, 19, 5))
		if countEffects[ShowStoryChooser](effects) != 0 {
			t.Fatal("chooser shown after ready for sleep")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		e := newTestEngine(t, func(s *store.Settings) { s.TonieEnabled = false })
		_, effects := e.Tick(at(15, 19, 5))
		if countEffects[ShowStoryChooser](effects) != 0 {
			t.Fatal("chooser shown while disabled")
		}
	})
}

func TestClockOverride(t *testing.T) {
	e := newTestEngine(t, nil)
	e.SetClockOverride("19:30")
	tr, _ := e.Evaluate()
	if tr == nil || tr.Current != schedule.Sleep {
		t.Fatalf("override should resolve SLEEP: %+v", tr)
	}
	e.SetClockOverride("")
	tr, _ = e.Evaluate()
	if tr == nil || tr.Current != schedule.Wake {
		t.Fatalf("clearing override should return to the wall clock: %+v", tr)
	}
}

// ============================================================
// Settings
// ============================================================

func TestReplaceSettingsRejectsInvalidSchedule(t *testing.T) {
	e := newTestEngine(t, nil)
	bad := e.Settings()
	bad.Schedule = []schedule.Block{
		{Mode: schedule.Sleep, Start: "20:00", End: "06:00"},
		{Mode: schedule.Wake, Start: "07:00", End: "20:00"},
	}
	effects, err := e.ReplaceSettings(bad)
	var invalid *schedule.InvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidError, got %v", err)
	}
	if effects != nil {
		t.Fatal("rejected settings must not be saved")
	}
	if len(e.Settings().Schedule) != len(schedule.DefaultSchedule()) {
		t.Fatal("previous schedule should stay active")
	}
	tr, _ := e.Tick(at(15, 18, 45))
	if tr == nil || tr.Current != schedule.GetReady {
		t.Fatalf("old schedule should still resolve: %+v", tr)
	}
}

func TestReplaceSettingsSwapsAndSaves(t *testing.T) {
	e := newTestEngine(t, nil)
	next := e.Settings()
	next.Schedule = []schedule.Block{
		{Mode: schedule.Sleep, Start: "20:00", End: "06:00"},
		{Mode: schedule.Wake, Start: "06:00", End: "20:00"},
	}
	effects, err := e.ReplaceSettings(next)
	if err != nil {
		t.Fatal(err)
	}
	if countEffects[SaveSettings](effects) != 1 {
		t.Fatalf("expected SaveSettings: %v", effects)
	}
	next.Schedule[0].Start = "21:00"
	if e.Settings().Schedule[0].Start != "20:00" {
		t.Fatal("engine aliases the caller's settings")
	}
	if tr, _ := e.Tick(at(15, 19, 5)); tr != nil {
		t.Fatalf("19:05 is WAKE under the new schedule: %+v", tr)
	}
}

func TestSelectStory(t *testing.T) {
	e := newTestEngine(t, nil)
	if _, err := e.SelectStory("nope"); !errors.Is(err, ErrUnknownTonie) {
		t.Fatalf("expected ErrUnknownTonie, got %v", err)
	}
	effects, err := e.SelectStory("tonie-2")
	if err != nil {
		t.Fatal(err)
	}
	if e.Settings().LastTonieID != "tonie-2" {
		t.Fatal("last story not recorded")
	}
	if countEffects[SaveSettings](effects) != 1 {
		t.Fatal("expected SaveSettings")
	}
}

// ============================================================
// Routine actions
// ============================================================

func TestRoutineActions(t *testing.T) {
	e := newTestEngine(t, nil)
	e.PrimeAudio()

	if _, err := e.ClaimReward(); !errors.Is(err, routine.ErrChoresIncomplete) {
		t.Fatalf("expected ErrChoresIncomplete, got %v", err)
	}
	for _, c := range e.Settings().Chores {
		if effects := e.ToggleChore(c.ID); countEffects[SaveDailyState](effects) != 1 {
			t.Fatal("toggle should save the day")
		}
	}
	effects, err := e.ClaimReward()
	if err != nil {
		t.Fatal(err)
	}
	if countEffects[PlayCelebration](effects) != 1 || countEffects[SaveDailyState](effects) != 1 {
		t.Fatalf("unexpected effects: %v", effects)
	}

	if _, err := e.MarkReadyForSleep(); !errors.Is(err, routine.ErrBooksIncomplete) {
		t.Fatalf("expected ErrBooksIncomplete, got %v", err)
	}
	for i := 0; i < routine.MaxBooks; i++ {
		if e.AddBook() == nil {
			t.Fatalf("book %d should save", i)
		}
	}
	if e.AddBook() != nil {
		t.Fatal("extra book should be a no-op")
	}
	if !e.Daily().ReadyForSleep() {
		t.Fatal("the last book should mark ready for sleep")
	}
	if _, err := e.MarkReadyForSleep(); err != nil {
		t.Fatal(err)
	}
}

func TestDailyReturnsCopy(t *testing.T) {
	e := newTestEngine(t, nil)
	d := e.Daily()
	d.ToggleChore("x")
	if e.Daily().Done("x") {
		t.Fatal("Daily aliases engine state")
	}
}

func TestTimeOfDayHonoursOverride(t *testing.T) {
	e := newTestEngine(t, nil)
	if got := e.TimeOfDay(); got != "12:00" {
		t.Fatalf("TimeOfDay = %s", got)
	}
	e.SetClockOverride("06:45")
	if e.TimeOfDay() != "06:45" || e.ClockOverride() != "06:45" {
		t.Fatalf("override not applied: %s", e.TimeOfDay())
	}
}

func TestNextTransition(t *testing.T) {
	e := newTestEngine(t, nil)
	next, ok := e.NextTransition(at(15, 18, 45))
	if !ok || next.At != "19:00" || next.In != 15 {
		t.Fatalf("unexpected next transition: %+v %v", next, ok)
	}
}

// ============================================================
// Executor
// ============================================================

func TestExecutorRoutesEffects(t *testing.T) {
	fs := newFakeStore()
	player := &fakePlayer{}
	x := NewExecutor(fs, player)
	ctx := context.Background()

	x.Dispatch(ctx,
		SaveDailyState{State: routine.New("p1", "2026-10-15")},
		SaveSettings{Settings: store.DefaultSettings("p1")},
		PlayChime{Volume: 40},
		PlayCelebration{Volume: 60},
		ShowStoryChooser{},
	)
	if _, ok := fs.daily["p1/2026-10-15"]; !ok {
		t.Fatal("daily state not saved")
	}
	if _, ok := fs.settings["p1"]; !ok {
		t.Fatal("settings not saved")
	}
	if len(player.chimes) != 1 || player.chimes[0] != 40 {
		t.Fatalf("chimes = %v", player.chimes)
	}
	if len(player.celebrations) != 1 || player.celebrations[0] != 60 {
		t.Fatalf("celebrations = %v", player.celebrations)
	}
}

func TestExecutorFailureIsLoggedAndStateKept(t *testing.T) {
	fs := newFakeStore()
	fs.err = errors.New("disk full")
	var buf bytes.Buffer
	x := NewExecutor(fs, nil)
	x.Logger = log.New(&buf, "", 0)

	e := newTestEngine(t, nil)
	effects := e.ToggleChore("chore-1")

	err := x.Execute(context.Background(), effects[0])
	var failure *Failure
	if !errors.As(err, &failure) || !errors.Is(err, fs.err) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}

	x.Dispatch(context.Background(), effects...)
	if !strings.Contains(buf.String(), "disk full") {
		t.Fatalf("failure not logged: %q", buf.String())
	}
	if !e.Daily().Done("chore-1") {
		t.Fatal("engine state rolled back after a failed save")
	}
}

type signalPlayer struct {
	played chan int
}

func (p signalPlayer) PlayChime(volume int) error {
	p.played <- volume
	return nil
}

func (p signalPlayer) PlayCelebration(int) error { return nil }

func TestExecutorQueuePreservesOrder(t *testing.T) {
	fs := newFakeStore()
	player := signalPlayer{played: make(chan int, 1)}
	x := NewExecutor(fs, player)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go x.Run(ctx)

	d := routine.New("p1", "2026-10-15")
	for i := 0; i < routine.MaxBooks; i++ {
		d.AddBook()
		x.Enqueue(SaveDailyState{State: d.Clone()})
	}
	x.Enqueue(PlayChime{Volume: 1})

	select {
	case <-player.played:
	case <-time.After(5 * time.Second):
		t.Fatal("queue never drained")
	}
	if got := fs.daily["p1/2026-10-15"].BooksCount; got != routine.MaxBooks {
		t.Fatalf("last write should win, got %d books", got)
	}
}

func TestEnqueueNothingIsNoop(t *testing.T) {
	x := NewExecutor(newFakeStore(), nil)
	x.Enqueue()
	if len(x.queue) != 0 {
		t.Fatal("empty enqueue should not queue a batch")
	}
}

func TestDrainFlushesQueue(t *testing.T) {
	fs := newFakeStore()
	x := NewExecutor(fs, nil)

	d := routine.New("p1", "2026-10-15")
	d.ToggleChore("chore-1")
	x.Enqueue(SaveDailyState{State: d.Clone()})
	x.Enqueue(SaveSettings{Settings: store.DefaultSettings("p1")})
	x.Drain(context.Background())

	if len(x.queue) != 0 {
		t.Fatal("queue should be empty after drain")
	}
	if got := fs.daily["p1/2026-10-15"]; !got.Done("chore-1") {
		t.Fatalf("daily state not flushed: %+v", got)
	}
	if fs.settings["p1"] == nil {
		t.Fatal("settings not flushed")
	}
	x.Drain(context.Background())
}

func TestExecutorCancelledContext(t *testing.T) {
	x := NewExecutor(newFakeStore(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := x.Execute(ctx, PlayChime{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// ============================================================
// Bootstrap
// ============================================================

func TestBootstrapSavesDefaults(t *testing.T) {
	fs := newFakeStore()
	clock := &schedule.Clock{Now: func() time.Time { return at(15, 12, 0) }}
	e, err := Bootstrap(fs, "p1", clock)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fs.settings["p1"]; !ok {
		t.Fatal("default settings not saved")
	}
	if _, ok := fs.daily["p1/2026-10-15"]; !ok {
		t.Fatal("fresh daily state not saved")
	}
	if e.Daily().Date != "2026-10-15" {
		t.Fatalf("daily date = %s", e.Daily().Date)
	}
}

func TestBootstrapLoadsExisting(t *testing.T) {
	fs := newFakeStore()
	s := store.DefaultSettings("p1")
	s.RewardText = "Ice cream"
	fs.settings["p1"] = s
	d := routine.New("p1", "2026-10-15")
	d.AddBook()
	fs.daily["p1/2026-10-15"] = d

	e, err := Bootstrap(fs, "p1", &schedule.Clock{Now: func() time.Time { return at(15, 12, 0) }})
	if err != nil {
		t.Fatal(err)
	}
	if e.Settings().RewardText != "Ice cream" || e.Daily().BooksCount != 1 {
		t.Fatal("existing records not loaded")
	}
}
