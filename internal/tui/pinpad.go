package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sleepclock/internal/engine"
	"github.com/sadopc/sleepclock/internal/pin"
)

const pinLength = 4

// pinpadModel collects a PIN before a parent view opens. When no PIN is
// stored yet, the first complete entry becomes the PIN.
type pinpadModel struct {
	engine *engine.Engine
	exec   *engine.Executor
	width  int

	active   bool
	target   viewState
	digits   string
	checking bool
}

func newPinpadModel(e *engine.Engine, x *engine.Executor) pinpadModel {
	return pinpadModel{engine: e, exec: x}
}

func (p *pinpadModel) setSize(w, _ int) {
	p.width = w
}

func (p pinpadModel) open(target viewState) pinpadModel {
	p.active = true
	p.target = target
	p.digits = ""
	p.checking = false
	return p
}

func (p pinpadModel) update(msg tea.Msg) (pinpadModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || p.checking {
		return p, nil
	}

	switch km.Type {
	case tea.KeyEsc:
		p.active = false
		p.digits = ""
		return p, nil
	case tea.KeyBackspace:
		if len(p.digits) > 0 {
			p.digits = p.digits[:len(p.digits)-1]
		}
		return p, nil
	case tea.KeyRunes:
		for _, r := range km.Runes {
			if r >= '0' && r <= '9' && len(p.digits) < pinLength {
				p.digits += string(r)
			}
		}
	}

	if len(p.digits) < pinLength {
		return p, nil
	}
	p.checking = true
	return p, p.submit(p.digits)
}

// submit hashes or verifies off the update loop; bcrypt is slow on purpose.
func (p pinpadModel) submit(entered string) tea.Cmd {
	e, x := p.engine, p.exec
	return func() tea.Msg {
		s := e.Settings()
		if s.PinHash == "" {
			hash, err := pin.Hash(entered)
			if err != nil {
				return pinResultMsg{err: err}
			}
			s.PinHash = hash
			effects, err := e.ReplaceSettings(s)
			if err != nil {
				return pinResultMsg{err: err}
			}
			x.Enqueue(effects...)
			return pinResultMsg{pinSet: true}
		}
		return pinResultMsg{err: pin.Verify(entered, s.PinHash)}
	}
}

// pinResultMsg reports the outcome of a submitted entry.
type pinResultMsg struct {
	pinSet bool
	err    error
}

// result closes the pad on success and clears it for another try otherwise.
func (p pinpadModel) result(msg pinResultMsg) (pinpadModel, tea.Cmd) {
	p.checking = false
	p.digits = ""
	if msg.err != nil {
		return p, statusCmd("Wrong PIN", true)
	}
	p.active = false
	pinSet := msg.pinSet
	return p, func() tea.Msg { return unlockedMsg{pinSet: pinSet} }
}

func (p pinpadModel) view() string {
	w := p.width - 4
	title := "Parent PIN"
	hint := "Enter the 4-digit PIN"
	if p.engine.Settings().PinHash == "" {
		title = "Choose a parent PIN"
		hint = "No PIN set yet: the digits you enter become the PIN"
	}

	dots := strings.Repeat("● ", len(p.digits)) + strings.Repeat("○ ", pinLength-len(p.digits))
	rows := []string{
		titleStyle.Render("🔒 " + title),
		"",
		highlightStyle.Render("   " + strings.TrimSpace(dots)),
		"",
		mutedStyle.Render("  " + hint),
		mutedStyle.Render("  backspace: delete  esc: cancel"),
	}
	if p.checking {
		rows = append(rows, warningStyle.Render("  checking..."))
	}
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
