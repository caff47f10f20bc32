// Package schedule maps a daily list of time blocks onto the display mode
// that is active at a given minute of the day.
package schedule

import (
	"fmt"
	"sort"
)

// Mode is the display state shown to the child.
type Mode string

const (
	GetReady   Mode = "GET_READY"
	Sleep      Mode = "SLEEP"
	AlmostWake Mode = "ALMOST_WAKE"
	Wake       Mode = "WAKE"
)

// Fallback is returned when no block matches. WAKE keeps a broken schedule
// from pinning the display in sleep.
const Fallback = Wake

// Modes lists every mode in routine order.
func Modes() []Mode {
	return []Mode{GetReady, Sleep, AlmostWake, Wake}
}

func (m Mode) Valid() bool {
	switch m {
	case GetReady, Sleep, AlmostWake, Wake:
		return true
	}
	return false
}

func (m Mode) String() string { return string(m) }

// ParseMode accepts the canonical upper-case names.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// Display is the child-facing text for a mode.
type Display struct {
	Icon     string
	Title    string
	Subtitle string
}

var displays = map[Mode]Display{
	GetReady:   {Icon: "🌙", Title: "Bedtime Jobs", Subtitle: "Time to get ready for sleep"},
	Sleep:      {Icon: "😴", Title: "Sleep Time", Subtitle: "Good night, sweet dreams"},
	AlmostWake: {Icon: "🌅", Title: "Almost Time", Subtitle: "Nearly time to wake up"},
	Wake:       {Icon: "☀️", Title: "Good Morning!", Subtitle: "Time to start the day"},
}

func (m Mode) Display() Display {
	if d, ok := displays[m]; ok {
		return d
	}
	return displays[Fallback]
}

// Block assigns one mode to the half-open interval [Start, End). A block
// whose End is earlier than its Start spans midnight; Start == End covers
// the whole day.
type Block struct {
	Mode  Mode   `json:"mode" yaml:"mode"`
	Start string `json:"startTime" yaml:"startTime"`
	End   string `json:"endTime" yaml:"endTime"`
}

func (b Block) String() string {
	return fmt.Sprintf("%s %s-%s", b.Mode, b.Start, b.End)
}

func (b Block) bounds() (start, end int, err error) {
	if start, err = TimeToMinutes(b.Start); err != nil {
		return 0, 0, err
	}
	if end, err = TimeToMinutes(b.End); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Wraps reports whether the block crosses midnight.
func (b Block) Wraps() bool {
	start, end, err := b.bounds()
	return err == nil && end < start
}

// Duration is the block length in minutes; a full-day block is 1440.
func (b Block) Duration() (int, error) {
	start, end, err := b.bounds()
	if err != nil {
		return 0, err
	}
	return span(start, end), nil
}

// Contains reports whether minute falls inside the block.
func (b Block) Contains(minute int) (bool, error) {
	start, end, err := b.bounds()
	if err != nil {
		return false, err
	}
	return contains(start, end, normalize(minute)), nil
}

func contains(start, end, now int) bool {
	switch {
	case start == end:
		return true
	case end < start:
		return now >= start || now < end
	default:
		return now >= start && now < end
	}
}

func span(start, end int) int {
	if start == end {
		return MinutesPerDay
	}
	return normalize(end - start)
}

// DefaultSchedule is the schedule a new profile starts with.
func DefaultSchedule() []Block {
	return []Block{
		{Mode: GetReady, Start: "18:30", End: "19:00"},
		{Mode: Sleep, Start: "19:00", End: "06:30"},
		{Mode: AlmostWake, Start: "06:30", End: "07:00"},
		{Mode: Wake, Start: "07:00", End: "18:30"},
	}
}

// Sorted returns a copy ordered by start minute. Unparseable blocks sort
// last, keeping their relative order.
func Sorted(blocks []Block) []Block {
	out := append([]Block(nil), blocks...)
	sort.SliceStable(out, func(i, j int) bool {
		a, errA := TimeToMinutes(out[i].Start)
		b, errB := TimeToMinutes(out[j].Start)
		if errA != nil || errB != nil {
			return errA == nil && errB != nil
		}
		return a < b
	})
	return out
}

// Clone copies a block list.
func Clone(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	return append([]Block(nil), blocks...)
}
