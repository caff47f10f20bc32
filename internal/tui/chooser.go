package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sleepclock/internal/engine"
	"github.com/sadopc/sleepclock/internal/schedule"
	"github.com/sadopc/sleepclock/internal/store"
)

// chooserModel is the bedtime story overlay. With a zero duration it waits
// for a choice; otherwise the remembered story is picked when time is up.
type chooserModel struct {
	engine *engine.Engine
	exec   *engine.Executor
	width  int

	active    bool
	tonies    []store.Tonie
	cursor    int
	fallback  int
	deadline  time.Time
	remaining time.Duration
}

func newChooserModel(e *engine.Engine, x *engine.Executor) chooserModel {
	return chooserModel{engine: e, exec: x}
}

func (c *chooserModel) setSize(w, _ int) {
	c.width = w
}

// open shows the chooser with the last chosen story preselected.
func (c chooserModel) open(eff engine.ShowStoryChooser, now time.Time) chooserModel {
	c.active = true
	c.tonies = eff.Tonies
	c.cursor = 0
	for i, t := range c.tonies {
		if t.ID == eff.LastTonieID {
			c.cursor = i
			break
		}
	}
	c.fallback = c.cursor
	c.deadline = time.Time{}
	c.remaining = 0
	if eff.Duration > 0 {
		c.deadline = now.Add(eff.Duration)
		c.remaining = eff.Duration
	}
	return c
}

func (c chooserModel) update(msg tea.Msg) (chooserModel, tea.Cmd) {
	if !c.active {
		return c, nil
	}
	switch msg := msg.(type) {
	case tickMsg:
		if c.deadline.IsZero() {
			return c, nil
		}
		c.remaining = c.deadline.Sub(time.Time(msg))
		if c.remaining <= 0 {
			c.cursor = c.fallback
			return c.choose()
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up), key.Matches(msg, keys.Left):
			if c.cursor > 0 {
				c.cursor--
			}
		case key.Matches(msg, keys.Down), key.Matches(msg, keys.Right):
			if c.cursor < len(c.tonies)-1 {
				c.cursor++
			}
		case key.Matches(msg, keys.Enter):
			return c.choose()
		case key.Matches(msg, keys.Back):
			c.active = false
			return c, statusCmd("Story skipped", false)
		}
	}
	return c, nil
}

func (c chooserModel) choose() (chooserModel, tea.Cmd) {
	c.active = false
	if c.cursor >= len(c.tonies) {
		return c, nil
	}
	t := c.tonies[c.cursor]
	effects, err := c.engine.SelectStory(t.ID)
	if err != nil {
		return c, statusCmd(fmt.Sprintf("Story error: %v", err), true)
	}
	c.exec.Enqueue(effects...)
	return c, statusCmd("Tonight's story: "+strings.TrimSpace(t.Emoji+" "+t.Name), false)
}

func (c chooserModel) view() string {
	w := c.width - 4
	rows := []string{
		modeStyle(schedule.Sleep).Render("😴 Pick tonight's story"),
		"",
	}
	for i, t := range c.tonies {
		cursor := "  "
		style := normalItemStyle
		if i == c.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+strings.TrimSpace(t.Emoji+" "+t.Name)))
	}
	rows = append(rows, "")
	if !c.deadline.IsZero() {
		rows = append(rows, accentStyle.Render("⏳ "+formatCountdown(c.remaining)))
	}
	rows = append(rows, mutedStyle.Render("  enter: choose  esc: skip"))
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
