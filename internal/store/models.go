package store

import (
	"time"

	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/schedule"
)

type Profile struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Tonie is one audio story figure offered by the story chooser.
type Tonie struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Emoji string `json:"emoji,omitempty" yaml:"emoji,omitempty"`
}

// Settings is the full per-profile configuration. It is always read and
// written as a whole.
type Settings struct {
	ProfileID            string
	Schedule             []schedule.Block
	ChoresEnabled        bool
	Chores               []routine.Chore
	RewardText           string
	TonieEnabled         bool
	Tonies               []Tonie
	TonieChooserDuration int // seconds, 0 = wait until chosen
	LastTonieID          string
	SoundEnabled         bool
	SoundVolume          int // 0-100
	ShowClock            bool
	PinHash              string
	UpdatedAt            time.Time
}

// Clone deep-copies the slices so callers can edit a copy freely.
func (s *Settings) Clone() *Settings {
	c := *s
	c.Schedule = schedule.Clone(s.Schedule)
	c.Chores = append([]routine.Chore(nil), s.Chores...)
	c.Tonies = append([]Tonie(nil), s.Tonies...)
	return &c
}

// DefaultSettings mirrors a freshly set up profile.
func DefaultSettings(profileID string) *Settings {
	return &Settings{
		ProfileID:     profileID,
		Schedule:      schedule.DefaultSchedule(),
		ChoresEnabled: true,
		Chores: []routine.Chore{
			{ID: "chore-1", Text: "Water plant", Emoji: "🌱"},
			{ID: "chore-2", Text: "Brush teeth", Emoji: "🪥"},
			{ID: "chore-3", Text: "Clean lounge room", Emoji: "🧹"},
		},
		RewardText:   "Great job! You earned a sticker!",
		TonieEnabled: true,
		Tonies: []Tonie{
			{ID: "tonie-1", Name: "Creative Tonie", Emoji: "🎨"},
			{ID: "tonie-2", Name: "Elsa", Emoji: "❄️"},
			{ID: "tonie-3", Name: "Lightning McQueen", Emoji: "🏎️"},
			{ID: "tonie-4", Name: "Benjamin Blümchen", Emoji: "🐘"},
		},
		TonieChooserDuration: 30,
		SoundEnabled:         true,
		SoundVolume:          50,
		ShowClock:            true,
	}
}

type Meta struct {
	Key   string
	Value string
}

const (
	MetaCurrentProfile = "current_profile_id"
	MetaLastWrite      = "last_write"
)

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
