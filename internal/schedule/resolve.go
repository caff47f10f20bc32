package schedule

// Resolve returns the mode active at the HH:mm time at. An unparseable time
// resolves to Fallback.
func Resolve(blocks []Block, at string) Mode {
	minute, err := TimeToMinutes(at)
	if err != nil {
		return Fallback
	}
	return ResolveMinute(blocks, minute)
}

// ResolveMinute scans blocks in input order and returns the mode of the
// first block containing minute. Blocks with malformed times are skipped.
// It does not assume the schedule was validated: no match yields Fallback,
// several matches yield the first one.
func ResolveMinute(blocks []Block, minute int) Mode {
	if b, ok := Active(blocks, minute); ok {
		return b.Mode
	}
	return Fallback
}

// Active returns the first block containing minute.
func Active(blocks []Block, minute int) (Block, bool) {
	for _, b := range blocks {
		if ok, err := b.Contains(minute); err == nil && ok {
			return b, true
		}
	}
	return Block{}, false
}

// Matches returns every block containing minute, in input order.
func Matches(blocks []Block, minute int) []Block {
	var out []Block
	for _, b := range blocks {
		if ok, err := b.Contains(minute); err == nil && ok {
			out = append(out, b)
		}
	}
	return out
}

// Transition describes the next scheduled mode change.
type Transition struct {
	Mode Mode
	At   string
	// In is the number of minutes from the queried minute until At.
	In int
}

// NextTransition reports when the block active at minute ends and which
// mode takes over. It returns false when nothing is active or the active
// block covers the whole day.
func NextTransition(blocks []Block, minute int) (Transition, bool) {
	minute = normalize(minute)
	cur, ok := Active(blocks, minute)
	if !ok {
		return Transition{}, false
	}
	start, end, _ := cur.bounds()
	if start == end {
		return Transition{}, false
	}
	return Transition{
		Mode: ResolveMinute(blocks, end),
		At:   cur.End,
		In:   normalize(end - minute),
	}, true
}
