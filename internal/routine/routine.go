// Package routine tracks the child's bedtime routine for one calendar day:
// chores, reward, books, ready for sleep.
package routine

import (
	"errors"
	"slices"
	"time"
)

// MaxBooks is the number of books that completes the routine.
const MaxBooks = 3

// Step is the last checkpoint recorded for the day.
type Step string

const (
	StepNone          Step = "none"
	StepChores        Step = "chores"
	StepRewardClaimed Step = "reward-claimed"
	StepBooks         Step = "books"
	StepReadyForSleep Step = "ready-for-sleep"
)

func (s Step) Valid() bool {
	switch s {
	case StepNone, StepChores, StepRewardClaimed, StepBooks, StepReadyForSleep:
		return true
	}
	return false
}

var (
	ErrChoresIncomplete = errors.New("not all chores are done")
	ErrAlreadyClaimed   = errors.New("reward already claimed today")
	ErrBooksIncomplete  = errors.New("not all books are read")
)

// Chore is one configured bedtime job.
type Chore struct {
	ID    string `json:"id" yaml:"id"`
	Text  string `json:"text" yaml:"text"`
	Emoji string `json:"emoji,omitempty" yaml:"emoji,omitempty"`
}

// DailyState is the routine progress for one profile on one date.
type DailyState struct {
	ProfileID         string    `json:"profileId"`
	Date              string    `json:"date"`
	ChoresDone        []string  `json:"choresDone"`
	BooksCount        int       `json:"booksCount"`
	LastCompletedStep Step      `json:"lastCompletedStep"`
	UpdatedAt         time.Time `json:"updatedAt,omitempty"`
}

// New returns an empty routine for date.
func New(profileID, date string) DailyState {
	return DailyState{
		ProfileID:         profileID,
		Date:              date,
		ChoresDone:        []string{},
		LastCompletedStep: StepNone,
	}
}

// Reset starts a new day for the same profile. prev is left untouched so
// the old record survives as history.
func Reset(prev DailyState, date string) DailyState {
	return New(prev.ProfileID, date)
}

// Clone deep-copies the state.
func (d DailyState) Clone() DailyState {
	d.ChoresDone = append([]string{}, d.ChoresDone...)
	return d
}

// Done reports whether chore id is checked off.
func (d DailyState) Done(id string) bool {
	return slices.Contains(d.ChoresDone, id)
}

// ToggleChore flips id in or out of the done set.
func (d *DailyState) ToggleChore(id string) {
	if i := slices.Index(d.ChoresDone, id); i >= 0 {
		d.ChoresDone = slices.Delete(d.ChoresDone, i, i+1)
		return
	}
	d.ChoresDone = append(d.ChoresDone, id)
}

// AllChoresDone reports whether every configured chore is checked off.
func (d DailyState) AllChoresDone(chores []Chore) bool {
	for _, c := range chores {
		if !d.Done(c.ID) {
			return false
		}
	}
	return true
}

// DoneCount counts the configured chores that are checked off. Stale IDs
// of chores no longer configured are ignored.
func (d DailyState) DoneCount(chores []Chore) int {
	n := 0
	for _, c := range chores {
		if d.Done(c.ID) {
			n++
		}
	}
	return n
}

// RewardClaimed reports whether the reward checkpoint has been passed.
func (d DailyState) RewardClaimed() bool {
	return d.LastCompletedStep == StepRewardClaimed ||
		d.LastCompletedStep == StepBooks ||
		d.LastCompletedStep == StepReadyForSleep
}

// ClaimReward records the reward once all chores are done.
func (d *DailyState) ClaimReward(chores []Chore) error {
	if d.RewardClaimed() {
		return ErrAlreadyClaimed
	}
	if !d.AllChoresDone(chores) {
		return ErrChoresIncomplete
	}
	d.LastCompletedStep = StepRewardClaimed
	return nil
}

// AddBook counts one more finished book, saturating at MaxBooks. It
// reports whether the count changed.
func (d *DailyState) AddBook() bool {
	if d.BooksCount >= MaxBooks {
		d.BooksCount = MaxBooks
		return false
	}
	d.BooksCount++
	return true
}

// ReadyForSleep reports whether the final checkpoint is recorded.
func (d DailyState) ReadyForSleep() bool {
	return d.LastCompletedStep == StepReadyForSleep
}

// MarkReadyForSleep records the final checkpoint once every book is read.
func (d *DailyState) MarkReadyForSleep() error {
	if d.BooksCount < MaxBooks {
		return ErrBooksIncomplete
	}
	d.LastCompletedStep = StepReadyForSleep
	return nil
}

// Phase is the derived position in the routine.
type Phase int

const (
	PhaseChores Phase = iota
	PhaseReward
	PhaseBooks
	PhaseReady
)

var phaseNames = map[Phase]string{
	PhaseChores: "chores",
	PhaseReward: "reward",
	PhaseBooks:  "books",
	PhaseReady:  "ready",
}

func (p Phase) String() string { return phaseNames[p] }

// Phase derives the current position from the stored checkpoints. With
// chores disabled the routine starts at the books.
func (d DailyState) Phase(choresEnabled bool, chores []Chore) Phase {
	if d.ReadyForSleep() || d.BooksCount >= MaxBooks {
		return PhaseReady
	}
	if !choresEnabled || d.RewardClaimed() {
		return PhaseBooks
	}
	if d.AllChoresDone(chores) {
		return PhaseReward
	}
	return PhaseChores
}
