package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sleepclock/internal/engine"
	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/schedule"
)

// clockModel is the child-facing screen: the mode, the time and, while
// getting ready, the bedtime routine.
type clockModel struct {
	engine *engine.Engine
	exec   *engine.Executor
	name   string
	width  int
	height int

	cursor int
}

func newClockModel(e *engine.Engine, x *engine.Executor, name string) clockModel {
	return clockModel{engine: e, exec: x, name: name}
}

func (c *clockModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

func (c clockModel) update(msg tea.Msg) (clockModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || c.engine.Mode() != schedule.GetReady {
		return c, nil
	}
	s := c.engine.Settings()

	switch {
	case key.Matches(km, keys.Up):
		if c.cursor > 0 {
			c.cursor--
		}
	case key.Matches(km, keys.Down):
		if c.cursor < len(s.Chores)-1 {
			c.cursor++
		}
	case key.Matches(km, keys.Toggle):
		if !s.ChoresEnabled || c.cursor >= len(s.Chores) {
			return c, nil
		}
		if c.engine.Daily().RewardClaimed() {
			return c, statusCmd("Reward already claimed today", false)
		}
		c.exec.Enqueue(c.engine.ToggleChore(s.Chores[c.cursor].ID)...)
	case key.Matches(km, keys.Reward):
		if !s.ChoresEnabled {
			return c, nil
		}
		effects, err := c.engine.ClaimReward()
		if err != nil {
			return c, statusCmd(err.Error(), true)
		}
		c.exec.Enqueue(effects...)
		return c, statusCmd("🎉 "+s.RewardText, false)
	case key.Matches(km, keys.Book):
		if s.ChoresEnabled && !c.engine.Daily().RewardClaimed() {
			return c, statusCmd("Finish your jobs first", true)
		}
		effects := c.engine.AddBook()
		if effects == nil {
			return c, nil
		}
		c.exec.Enqueue(effects...)
		if c.engine.Daily().ReadyForSleep() {
			return c, statusCmd("Ready for sleep!", false)
		}
	}
	return c, nil
}

func (c clockModel) view() string {
	if c.width < 20 {
		return "Terminal too small"
	}
	w := c.width - 4
	mode := c.engine.Mode()
	s := c.engine.Settings()
	d := mode.Display()
	style := modeStyle(mode)

	rows := []string{
		style.Render(d.Icon + "  " + d.Title),
		subtitleStyle.Render(d.Subtitle),
	}
	if s.ShowClock {
		rows = append(rows, "", clockStyle.Width(w-6).Render(c.engine.TimeOfDay()))
	}
	if !c.engine.AudioPrimed() {
		rows = append(rows, "", warningStyle.Render("🔊 Press a to turn on sounds"))
	}

	panel := activePanelStyle.BorderForeground(modeColors[mode]).Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, rows...),
	)

	parts := []string{panel}
	if mode == schedule.GetReady {
		parts = append(parts, c.renderRoutine(w))
	}
	parts = append(parts, c.renderNext(w))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (c clockModel) renderRoutine(w int) string {
	s := c.engine.Settings()
	daily := c.engine.Daily()

	var rows []string
	switch daily.Phase(s.ChoresEnabled, s.Chores) {
	case routine.PhaseChores:
		rows = append(rows, titleStyle.Render(fmt.Sprintf("Bedtime jobs for %s", c.name)))
		for i, ch := range s.Chores {
			box := "[ ]"
			if daily.Done(ch.ID) {
				box = successStyle.Render("[x]")
			}
			cursor := "  "
			style := normalItemStyle
			if i == c.cursor {
				cursor = "> "
				style = selectedItemStyle
			}
			rows = append(rows, style.Render(cursor)+box+" "+style.Render(strings.TrimSpace(ch.Emoji+" "+ch.Text)))
		}
		rows = append(rows, "", mutedStyle.Render(fmt.Sprintf("  %d/%d done  space: tick", daily.DoneCount(s.Chores), len(s.Chores))))
	case routine.PhaseReward:
		rows = append(rows,
			successStyle.Bold(true).Render("All jobs done!"),
			mutedStyle.Render("Press r to claim your reward"),
		)
	case routine.PhaseBooks:
		rows = append(rows, titleStyle.Render("Story time"), c.renderBooks(daily.BooksCount), "",
			mutedStyle.Render("Press b when a book is finished"))
	case routine.PhaseReady:
		rows = append(rows, successStyle.Bold(true).Render("🌟 Ready for sleep!"), c.renderBooks(daily.BooksCount))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (c clockModel) renderBooks(n int) string {
	var parts []string
	for i := 0; i < routine.MaxBooks; i++ {
		if i < n {
			parts = append(parts, successStyle.Render("📖"))
		} else {
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	return strings.Join(parts, " ") + mutedStyle.Render(fmt.Sprintf("  %d/%d", n, routine.MaxBooks))
}

func (c clockModel) renderNext(w int) string {
	next, ok := c.engine.NextTransition(c.engine.Now())
	if !ok {
		return ""
	}
	line := fmt.Sprintf("Next: %s at %s (in %s)", next.Mode.Display().Title, next.At, formatMinutes(next.In))
	return mutedStyle.Width(w).Render("  " + line)
}
