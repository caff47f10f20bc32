package schedule

import (
	"errors"
	"fmt"
	"time"
)

// MinutesPerDay is the modulus for all minute-of-day arithmetic.
const MinutesPerDay = 24 * 60

// ErrFormat is wrapped by every FormatError.
var ErrFormat = errors.New("invalid time format")

// FormatError reports a time string that is not a zero-padded HH:mm value.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time %q: want HH:mm", e.Value)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// TimeToMinutes converts "HH:mm" into a minute of the day in [0, 1439].
func TimeToMinutes(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' || !isDigit(s[0]) || !isDigit(s[1]) || !isDigit(s[3]) || !isDigit(s[4]) {
		return 0, &FormatError{Value: s}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, &FormatError{Value: s}
	}
	return h*60 + m, nil
}

// MinutesToTime formats a minute of the day, wrapping out-of-range input.
func MinutesToTime(minutes int) string {
	m := normalize(minutes)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ValidTime reports whether s is a well-formed HH:mm string.
func ValidTime(s string) bool {
	_, err := TimeToMinutes(s)
	return err == nil
}

func normalize(m int) int {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return m
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Clock supplies the time of day to the engine. Override, when set to a
// valid HH:mm value, replaces the wall clock's time of day everywhere.
type Clock struct {
	Override string
	Now      func() time.Time
}

// SystemClock returns a clock backed by time.Now.
func SystemClock(override string) *Clock {
	return &Clock{Override: override, Now: time.Now}
}

// Current is the wall-clock instant, honouring a stubbed Now.
func (c *Clock) Current() time.Time {
	if c == nil || c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// MinuteOfDay returns the override if valid, else the local wall clock.
func (c *Clock) MinuteOfDay() int {
	return c.MinuteAt(c.Current())
}

// MinuteAt is MinuteOfDay evaluated at t instead of the clock's own now.
func (c *Clock) MinuteAt(t time.Time) int {
	var override string
	if c != nil {
		override = c.Override
	}
	return minuteOfDay(override, t)
}

// Time returns MinuteOfDay as HH:mm.
func (c *Clock) Time() string {
	return MinutesToTime(c.MinuteOfDay())
}

// Today is the local calendar date. The override never changes the date.
func (c *Clock) Today() string {
	return DateString(c.Current())
}

// DateString formats t's local date as YYYY-MM-DD.
func DateString(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// CurrentMinuteOfDay is the free-standing form of Clock.MinuteOfDay.
func CurrentMinuteOfDay(override string) int {
	return minuteOfDay(override, time.Now())
}

func minuteOfDay(override string, now time.Time) int {
	if override != "" {
		if m, err := TimeToMinutes(override); err == nil {
			return m
		}
	}
	local := now.Local()
	return local.Hour()*60 + local.Minute()
}
