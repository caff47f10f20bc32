// Package audio rings the terminal bell for chimes and celebrations.
package audio

import (
	"bytes"
	"io"
	"sync"
)

const bell = '\a'

// Bell counts per sound. The celebration echoes the four-note arpeggio.
const (
	ChimeBells       = 1
	CelebrationBells = 4
)

// Player writes BEL characters to its writer, normally the terminal. It
// stays silent until primed by a user gesture.
type Player struct {
	mu     sync.Mutex
	w      io.Writer
	primed bool
}

func NewPlayer(w io.Writer) *Player {
	return &Player{w: w}
}

// Prime unlocks sound output. Calling it again is harmless.
func (p *Player) Prime() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.primed = true
}

func (p *Player) Primed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.primed
}

func (p *Player) PlayChime(volume int) error {
	return p.ring(ChimeBells, volume)
}

func (p *Player) PlayCelebration(volume int) error {
	return p.ring(CelebrationBells, volume)
}

func (p *Player) ring(n, volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.primed || volume <= 0 || p.w == nil {
		return nil
	}
	_, err := p.w.Write(bytes.Repeat([]byte{bell}, n))
	return err
}
