package engine

import (
	"time"

	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/store"
)

// Effect is a side effect requested by the engine. The engine never
// performs I/O itself; callers hand effects to an Executor.
type Effect interface {
	effect()
}

type PlayChime struct {
	Volume int
}

type PlayCelebration struct {
	Volume int
}

// ShowStoryChooser asks the UI to offer tonight's story figures.
// Duration 0 means wait until one is chosen.
type ShowStoryChooser struct {
	Tonies      []store.Tonie
	LastTonieID string
	Duration    time.Duration
}

type SaveDailyState struct {
	State routine.DailyState
}

// SaveSettings carries a snapshot of the settings to persist.
type SaveSettings struct {
	Settings *store.Settings
}

func (PlayChime) effect()        {}
func (PlayCelebration) effect()  {}
func (ShowStoryChooser) effect() {}
func (SaveDailyState) effect()   {}
func (SaveSettings) effect()     {}
