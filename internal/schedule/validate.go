package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrScheduleInvalid is wrapped by InvalidError.
var ErrScheduleInvalid = errors.New("schedule invalid")

// InvalidError carries every problem found by Validate.
type InvalidError struct {
	Problems []string
}

func (e *InvalidError) Error() string {
	return "invalid schedule: " + strings.Join(e.Problems, "; ")
}

func (e *InvalidError) Unwrap() error { return ErrScheduleInvalid }

// Result is the outcome of Validate.
type Result struct {
	Valid  bool
	Errors []string
}

// Err converts an invalid result into an *InvalidError.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &InvalidError{Problems: append([]string(nil), r.Errors...)}
}

type bounded struct {
	Block
	start, end int
}

// Validate checks that the blocks tile the day: every minute 0..1439 must
// fall in exactly one block.
//
// Blocks are sorted by start and walked as a ring, last block wrapping to
// the first. For each block the distance from its start to its end is
// compared with the distance from its start to the next block's start, both
// taken modulo 1440. Shorter leaves a gap, longer overlaps the next block.
func Validate(blocks []Block) Result {
	if len(blocks) == 0 {
		return Result{Errors: []string{"Schedule must have at least one block"}}
	}

	var errs []string
	parsed := make([]bounded, 0, len(blocks))
	for _, b := range blocks {
		ok := true
		if !b.Mode.Valid() {
			errs = append(errs, fmt.Sprintf("Invalid mode: %s", b.Mode))
		}
		start, err := TimeToMinutes(b.Start)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Invalid start time format: %s", b.Start))
			ok = false
		}
		end, err := TimeToMinutes(b.End)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Invalid end time format: %s", b.End))
			ok = false
		}
		if ok {
			parsed = append(parsed, bounded{Block: b, start: start, end: end})
		}
	}
	if len(parsed) != len(blocks) {
		return Result{Errors: errs}
	}

	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].start < parsed[j].start })

	n := len(parsed)
	for i, cur := range parsed {
		next := parsed[(i+1)%n]
		length := span(cur.start, cur.end)
		dist := MinutesPerDay
		if n > 1 {
			dist = normalize(next.start - cur.start)
		}
		switch {
		case length < dist:
			errs = append(errs, fmt.Sprintf("Gap detected between %s and %s (%d min uncovered)",
				cur.End, next.Start, dist-length))
		case length > dist:
			errs = append(errs, fmt.Sprintf("Overlap detected: %s ends at %s but %s starts at %s",
				cur.Mode, cur.End, next.Mode, next.Start))
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}
