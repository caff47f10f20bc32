package schedule

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testSchedule() []Block {
	return []Block{
		{Mode: GetReady, Start: "18:00", End: "19:00"},
		{Mode: Sleep, Start: "19:00", End: "06:30"},
		{Mode: AlmostWake, Start: "06:30", End: "07:00"},
		{Mode: Wake, Start: "07:00", End: "18:00"},
	}
}

// ============================================================
// Time model
// ============================================================

func TestTimeToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"00:01", 1},
		{"00:30", 30},
		{"01:00", 60},
		{"09:05", 545},
		{"12:30", 750},
		{"23:59", 1439},
	}
	for _, tt := range tests {
		got, err := TimeToMinutes(tt.in)
		if err != nil {
			t.Fatalf("TimeToMinutes(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("TimeToMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimeToMinutesRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "7:00", "07:0", "24:00", "12:60", "ab:cd", "12-30", "123:00", " 12:30"} {
		_, err := TimeToMinutes(in)
		if err == nil {
			t.Errorf("TimeToMinutes(%q) should fail", in)
			continue
		}
		if !errors.Is(err, ErrFormat) {
			t.Errorf("TimeToMinutes(%q) error should wrap ErrFormat, got %v", in, err)
		}
		var fe *FormatError
		if !errors.As(err, &fe) || fe.Value != in {
			t.Errorf("TimeToMinutes(%q) should return *FormatError carrying the input", in)
		}
	}
}

func TestMinutesToTime(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{545, "09:05"},
		{1439, "23:59"},
		{1440, "00:00"},
		{1500, "01:00"},
		{-1, "23:59"},
		{-1440, "00:00"},
	}
	for _, tt := range tests {
		if got := MinutesToTime(tt.in); got != tt.want {
			t.Errorf("MinutesToTime(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMinutesRoundTrip(t *testing.T) {
	for m := 0; m < MinutesPerDay; m++ {
		got, err := TimeToMinutes(MinutesToTime(m))
		if err != nil || got != m {
			t.Fatalf("round trip of %d gave %d (%v)", m, got, err)
		}
	}
}

func TestClockOverride(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 10, 15, 0, 0, time.Local)
	c := &Clock{Override: "18:45", Now: func() time.Time { return fixed }}
	if got := c.MinuteOfDay(); got != 18*60+45 {
		t.Fatalf("override minute = %d", got)
	}
	if c.Time() != "18:45" {
		t.Fatalf("override time = %s", c.Time())
	}
	if c.Today() != "2026-03-14" {
		t.Fatalf("override must not change the date, got %s", c.Today())
	}

	c.Override = "bogus"
	if got := c.MinuteOfDay(); got != 10*60+15 {
		t.Fatalf("invalid override should fall back to wall clock, got %d", got)
	}

	c.Override = ""
	if c.Time() != "10:15" {
		t.Fatalf("wall clock time = %s", c.Time())
	}
}

func TestCurrentMinuteOfDay(t *testing.T) {
	if got := CurrentMinuteOfDay("15:30"); got != 930 {
		t.Fatalf("CurrentMinuteOfDay override = %d", got)
	}
	got := CurrentMinuteOfDay("")
	if got < 0 || got >= MinutesPerDay {
		t.Fatalf("CurrentMinuteOfDay out of range: %d", got)
	}
}

func TestNilClockUsesWallClock(t *testing.T) {
	var c *Clock
	if m := c.MinuteOfDay(); m < 0 || m >= MinutesPerDay {
		t.Fatalf("nil clock minute out of range: %d", m)
	}
}

// ============================================================
// Modes
// ============================================================

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(string(m))
		if err != nil || got != m {
			t.Fatalf("ParseMode(%s) = %s, %v", m, got, err)
		}
	}
	if _, err := ParseMode("NAP"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestModeDisplay(t *testing.T) {
	if GetReady.Display().Title != "Bedtime Jobs" {
		t.Fatalf("unexpected GET_READY title: %q", GetReady.Display().Title)
	}
	if Mode("NAP").Display() != Wake.Display() {
		t.Fatal("unknown mode should display as the fallback mode")
	}
}

// ============================================================
// Resolver
// ============================================================

func TestResolveSameDayBlocks(t *testing.T) {
	s := testSchedule()
	cases := map[string]Mode{
		"18:30": GetReady,
		"10:00": Wake,
		"06:45": AlmostWake,
	}
	for at, want := range cases {
		if got := Resolve(s, at); got != want {
			t.Errorf("Resolve(%s) = %s, want %s", at, got, want)
		}
	}
}

func TestResolveWrapsMidnight(t *testing.T) {
	s := testSchedule()
	for _, at := range []string{"19:00", "22:00", "23:59", "00:00", "03:00", "06:00", "06:29"} {
		if got := Resolve(s, at); got != Sleep {
			t.Errorf("Resolve(%s) = %s, want SLEEP", at, got)
		}
	}
	if got := Resolve(s, "06:30"); got == Sleep {
		t.Fatal("06:30 belongs to the block that starts there")
	}
}

func TestResolveStartBoundaryWins(t *testing.T) {
	s := testSchedule()
	for _, b := range s {
		if got := Resolve(s, b.Start); got != b.Mode {
			t.Errorf("Resolve(%s) = %s, want %s", b.Start, got, b.Mode)
		}
	}
}

func TestResolveEmptyScheduleFallsBack(t *testing.T) {
	for _, at := range []string{"00:00", "12:00", "23:59"} {
		if got := Resolve(nil, at); got != Wake {
			t.Fatalf("Resolve([], %s) = %s, want WAKE", at, got)
		}
	}
}

func TestResolveUnsortedSchedule(t *testing.T) {
	s := []Block{
		{Mode: Wake, Start: "07:00", End: "18:00"},
		{Mode: Sleep, Start: "19:00", End: "06:30"},
		{Mode: GetReady, Start: "18:00", End: "19:00"},
		{Mode: AlmostWake, Start: "06:30", End: "07:00"},
	}
	if got := Resolve(s, "18:30"); got != GetReady {
		t.Fatalf("got %s", got)
	}
	if got := Resolve(s, "22:00"); got != Sleep {
		t.Fatalf("got %s", got)
	}
}

func TestResolveSkipsMalformedBlocks(t *testing.T) {
	s := []Block{
		{Mode: Sleep, Start: "7pm", End: "06:30"},
		{Mode: GetReady, Start: "18:00", End: "20:00"},
	}
	if got := Resolve(s, "19:30"); got != GetReady {
		t.Fatalf("malformed block should be skipped, got %s", got)
	}
	if got := Resolve(s, "23:00"); got != Wake {
		t.Fatalf("uncovered minute should fall back, got %s", got)
	}
}

func TestResolveOverlapTakesFirstInInputOrder(t *testing.T) {
	s := []Block{
		{Mode: Sleep, Start: "20:00", End: "22:00"},
		{Mode: GetReady, Start: "19:00", End: "21:00"},
	}
	if got := Resolve(s, "20:30"); got != Sleep {
		t.Fatalf("first matching block should win, got %s", got)
	}
}

func TestResolveInvalidTimeFallsBack(t *testing.T) {
	if got := Resolve(testSchedule(), "25:00"); got != Fallback {
		t.Fatalf("got %s", got)
	}
}

func TestResolveFullDayBlock(t *testing.T) {
	s := []Block{{Mode: Sleep, Start: "12:00", End: "12:00"}}
	for _, m := range []int{0, 719, 720, 1439} {
		if got := ResolveMinute(s, m); got != Sleep {
			t.Fatalf("full-day block should match minute %d, got %s", m, got)
		}
	}
}

func TestValidScheduleHasExactlyOneMatchEveryMinute(t *testing.T) {
	schedules := [][]Block{
		testSchedule(),
		DefaultSchedule(),
		{{Mode: Sleep, Start: "00:00", End: "00:00"}},
		{{Mode: Sleep, Start: "22:00", End: "06:00"}, {Mode: Wake, Start: "06:00", End: "22:00"}},
		{{Mode: Wake, Start: "00:00", End: "12:00"}, {Mode: Sleep, Start: "12:00", End: "00:00"}},
	}
	for i, s := range schedules {
		if r := Validate(s); !r.Valid {
			t.Fatalf("schedule %d should be valid: %v", i, r.Errors)
		}
		for m := 0; m < MinutesPerDay; m++ {
			matches := Matches(s, m)
			if len(matches) != 1 {
				t.Fatalf("schedule %d minute %d: %d matches", i, m, len(matches))
			}
			if ResolveMinute(s, m) != matches[0].Mode {
				t.Fatalf("schedule %d minute %d: resolver disagrees with match", i, m)
			}
		}
	}
}

func TestNextTransition(t *testing.T) {
	s := testSchedule()

	tr, ok := NextTransition(s, 22*60)
	if !ok {
		t.Fatal("expected a transition")
	}
	if tr.Mode != AlmostWake || tr.At != "06:30" {
		t.Fatalf("unexpected transition: %+v", tr)
	}
	if tr.In != 8*60+30 {
		t.Fatalf("expected 510 minutes, got %d", tr.In)
	}

	tr, _ = NextTransition(s, 18*60)
	if tr.Mode != Sleep || tr.In != 60 {
		t.Fatalf("unexpected transition: %+v", tr)
	}

	if _, ok := NextTransition(nil, 0); ok {
		t.Fatal("empty schedule has no transition")
	}
	if _, ok := NextTransition([]Block{{Mode: Wake, Start: "03:00", End: "03:00"}}, 0); ok {
		t.Fatal("full-day block has no transition")
	}
}

func TestSorted(t *testing.T) {
	s := []Block{
		{Mode: Wake, Start: "07:00", End: "18:00"},
		{Mode: Sleep, Start: "bad", End: "06:30"},
		{Mode: AlmostWake, Start: "06:30", End: "07:00"},
	}
	got := Sorted(s)
	if got[0].Mode != AlmostWake || got[1].Mode != Wake || got[2].Mode != Sleep {
		t.Fatalf("unexpected order: %v", got)
	}
	if s[0].Mode != Wake {
		t.Fatal("Sorted must not modify its input")
	}
}

func TestBlockDurationAndWraps(t *testing.T) {
	b := Block{Mode: Sleep, Start: "19:00", End: "06:30"}
	if !b.Wraps() {
		t.Fatal("19:00-06:30 wraps midnight")
	}
	d, err := b.Duration()
	if err != nil || d != 11*60+30 {
		t.Fatalf("duration = %d, %v", d, err)
	}
	full := Block{Mode: Sleep, Start: "08:00", End: "08:00"}
	if d, _ := full.Duration(); d != MinutesPerDay {
		t.Fatalf("full-day duration = %d", d)
	}
	if _, err := (Block{Start: "x", End: "08:00"}).Duration(); err == nil {
		t.Fatal("expected error for malformed block")
	}
}

// ============================================================
// Validator
// ============================================================

func TestValidateAcceptsTiledSchedule(t *testing.T) {
	r := Validate(testSchedule())
	if !r.Valid || len(r.Errors) != 0 {
		t.Fatalf("expected valid, got %v", r.Errors)
	}
	if r.Err() != nil {
		t.Fatal("valid result should have nil Err")
	}
}

func TestValidateRejectsEmpty(t *testing.T) {
	r := Validate(nil)
	if r.Valid {
		t.Fatal("empty schedule must be invalid")
	}
	if len(r.Errors) != 1 || r.Errors[0] != "Schedule must have at least one block" {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	r := Validate([]Block{{Mode: Wake, Start: "7:00", End: "18:00"}})
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if !containsError(r.Errors, "Invalid start time format") {
		t.Fatalf("missing format error: %v", r.Errors)
	}
	r = Validate([]Block{{Mode: Wake, Start: "07:00", End: "25:00"}})
	if !containsError(r.Errors, "Invalid end time format") {
		t.Fatalf("missing format error: %v", r.Errors)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	r := Validate([]Block{{Mode: "NAP", Start: "00:00", End: "00:00"}})
	if r.Valid || !containsError(r.Errors, "Invalid mode") {
		t.Fatalf("expected invalid mode error, got %v", r.Errors)
	}
}

func TestValidateDetectsGap(t *testing.T) {
	s := []Block{
		{Mode: GetReady, Start: "17:00", End: "18:00"},
		{Mode: Sleep, Start: "18:30", End: "06:30"},
		{Mode: AlmostWake, Start: "06:30", End: "07:00"},
		{Mode: Wake, Start: "07:00", End: "17:00"},
	}
	r := Validate(s)
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if !containsError(r.Errors, "Gap") {
		t.Fatalf("expected a Gap error, got %v", r.Errors)
	}
	if !containsError(r.Errors, "18:00 and 18:30") {
		t.Fatalf("gap error should name the boundary, got %v", r.Errors)
	}
}

func TestValidateDetectsOverlap(t *testing.T) {
	s := []Block{
		{Mode: GetReady, Start: "18:00", End: "19:30"},
		{Mode: Sleep, Start: "19:00", End: "06:30"},
		{Mode: AlmostWake, Start: "06:30", End: "07:00"},
		{Mode: Wake, Start: "07:00", End: "18:00"},
	}
	r := Validate(s)
	if r.Valid || !containsError(r.Errors, "Overlap") {
		t.Fatalf("expected an Overlap error, got %v", r.Errors)
	}
}

func TestValidateDetectsGapAcrossMidnight(t *testing.T) {
	s := []Block{
		{Mode: Sleep, Start: "19:00", End: "23:30"},
		{Mode: Wake, Start: "00:00", End: "19:00"},
	}
	r := Validate(s)
	if r.Valid || !containsError(r.Errors, "Gap detected between 23:30 and 00:00") {
		t.Fatalf("expected a midnight gap, got %v", r.Errors)
	}
}

func TestValidateDetectsOverlapAcrossMidnight(t *testing.T) {
	s := []Block{
		{Mode: Sleep, Start: "19:00", End: "07:30"},
		{Mode: Wake, Start: "07:00", End: "19:00"},
	}
	r := Validate(s)
	if r.Valid || !containsError(r.Errors, "Overlap") {
		t.Fatalf("expected overlap, got %v", r.Errors)
	}
}

func TestValidateSingleBlock(t *testing.T) {
	t.Run("full day", func(t *testing.T) {
		if r := Validate([]Block{{Mode: Wake, Start: "06:00", End: "06:00"}}); !r.Valid {
			t.Fatalf("start == end covers the day: %v", r.Errors)
		}
	})
	t.Run("partial day", func(t *testing.T) {
		r := Validate([]Block{{Mode: Wake, Start: "06:00", End: "20:00"}})
		if r.Valid || !containsError(r.Errors, "Gap") {
			t.Fatalf("expected gap, got %v", r.Errors)
		}
	})
	t.Run("full day plus another block", func(t *testing.T) {
		r := Validate([]Block{
			{Mode: Wake, Start: "06:00", End: "06:00"},
			{Mode: Sleep, Start: "20:00", End: "06:00"},
		})
		if r.Valid || !containsError(r.Errors, "Overlap") {
			t.Fatalf("expected overlap, got %v", r.Errors)
		}
	})
}

func TestValidateDuplicateStarts(t *testing.T) {
	r := Validate([]Block{
		{Mode: Wake, Start: "06:00", End: "18:00"},
		{Mode: GetReady, Start: "06:00", End: "18:00"},
		{Mode: Sleep, Start: "18:00", End: "06:00"},
	})
	if r.Valid || !containsError(r.Errors, "Overlap") {
		t.Fatalf("duplicate starts must overlap, got %v", r.Errors)
	}
}

func TestValidateRejectsEveryNonTilingSchedule(t *testing.T) {
	// Two-block schedules over a coarse grid: Validate must agree with a
	// brute-force coverage count.
	grid := []string{"00:00", "06:00", "12:00", "18:00"}
	for _, s1 := range grid {
		for _, e1 := range grid {
			for _, s2 := range grid {
				for _, e2 := range grid {
					s := []Block{
						{Mode: Sleep, Start: s1, End: e1},
						{Mode: Wake, Start: s2, End: e2},
					}
					tiles := true
					for m := 0; m < MinutesPerDay; m++ {
						if len(Matches(s, m)) != 1 {
							tiles = false
							break
						}
					}
					if got := Validate(s).Valid; got != tiles {
						t.Fatalf("%v: Validate=%v, brute force=%v", s, got, tiles)
					}
				}
			}
		}
	}
}

func TestResultErr(t *testing.T) {
	err := Validate(nil).Err()
	if !errors.Is(err, ErrScheduleInvalid) {
		t.Fatalf("expected ErrScheduleInvalid, got %v", err)
	}
	var inv *InvalidError
	if !errors.As(err, &inv) || len(inv.Problems) != 1 {
		t.Fatalf("expected *InvalidError with one problem, got %v", err)
	}
}

func containsError(errs []string, sub string) bool {
	for _, e := range errs {
		if strings.Contains(e, sub) {
			return true
		}
	}
	return false
}
