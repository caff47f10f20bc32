package tui

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sleepclock/internal/engine"
	"github.com/sadopc/sleepclock/internal/schedule"
)

// scheduleModel edits a draft copy of the schedule. The engine keeps the
// active schedule until a valid draft is applied.
type scheduleModel struct {
	engine *engine.Engine
	exec   *engine.Executor
	width  int
	height int

	locked   bool
	draft    []schedule.Block
	dirty    bool
	problems []string
	cursor   int

	formActive bool
	form       *huh.Form
	editing    int // index into draft, -1 for a new block

	// Form field pointers (survive value copies)
	formMode  *string
	formStart *string
	formEnd   *string
}

func newScheduleModel(e *engine.Engine, x *engine.Executor) scheduleModel {
	mode, start, end := "", "", ""
	m := scheduleModel{
		engine:    e,
		exec:      x,
		locked:    true,
		editing:   -1,
		formMode:  &mode,
		formStart: &start,
		formEnd:   &end,
	}
	m.draft = schedule.Sorted(e.Settings().Schedule)
	return m
}

func (s *scheduleModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

// refresh reloads the active schedule unless a draft is in progress.
func (s scheduleModel) refresh() scheduleModel {
	if s.dirty {
		return s
	}
	s.draft = schedule.Sorted(s.engine.Settings().Schedule)
	s.problems = nil
	if s.cursor >= len(s.draft) {
		s.cursor = max(0, len(s.draft)-1)
	}
	return s
}

func (s scheduleModel) update(msg tea.Msg) (scheduleModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch {
	case key.Matches(km, keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(km, keys.Down):
		if s.cursor < len(s.draft)-1 {
			s.cursor++
		}
	case key.Matches(km, keys.Edit), key.Matches(km, keys.Enter):
		if s.locked {
			return s, unlockRequest
		}
		if len(s.draft) > 0 {
			return s.showForm(s.cursor)
		}
	case key.Matches(km, keys.New):
		if s.locked {
			return s, unlockRequest
		}
		return s.showForm(-1)
	case key.Matches(km, keys.Delete):
		if s.locked {
			return s, unlockRequest
		}
		if len(s.draft) > 0 {
			s.draft = slices.Delete(slices.Clone(s.draft), s.cursor, s.cursor+1)
			s.cursor = min(s.cursor, max(0, len(s.draft)-1))
			s = s.revalidate()
		}
	case key.Matches(km, keys.Save):
		if s.locked {
			return s, unlockRequest
		}
		return s.apply()
	case key.Matches(km, keys.Back):
		if s.dirty {
			s.dirty = false
			return s.refresh(), statusCmd("Draft discarded", false)
		}
	}
	return s, nil
}

func (s scheduleModel) showForm(idx int) (scheduleModel, tea.Cmd) {
	s.editing = idx
	if idx >= 0 {
		b := s.draft[idx]
		*s.formMode = string(b.Mode)
		*s.formStart = b.Start
		*s.formEnd = b.End
	} else {
		*s.formMode = string(schedule.Fallback)
		*s.formStart = ""
		*s.formEnd = ""
	}

	modeOptions := make([]huh.Option[string], 0, len(schedule.Modes()))
	for _, m := range schedule.Modes() {
		d := m.Display()
		modeOptions = append(modeOptions, huh.NewOption(d.Icon+" "+d.Title, string(m)))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Mode").Options(modeOptions...).Value(s.formMode),
			huh.NewInput().Title("Start (HH:mm)").Value(s.formStart).Validate(validateTime),
			huh.NewInput().Title("End (HH:mm)").Value(s.formEnd).Validate(validateTime),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func validateTime(v string) error {
	_, err := schedule.TimeToMinutes(strings.TrimSpace(v))
	return err
}

func (s scheduleModel) updateForm(msg tea.Msg) (scheduleModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		b := schedule.Block{
			Mode:  schedule.Mode(*s.formMode),
			Start: strings.TrimSpace(*s.formStart),
			End:   strings.TrimSpace(*s.formEnd),
		}
		draft := slices.Clone(s.draft)
		if s.editing >= 0 && s.editing < len(draft) {
			draft[s.editing] = b
		} else {
			draft = append(draft, b)
		}
		s.draft = schedule.Sorted(draft)
		if i := slices.Index(s.draft, b); i >= 0 {
			s.cursor = i
		}
		return s.revalidate(), nil
	}

	return s, cmd
}

func (s scheduleModel) revalidate() scheduleModel {
	s.dirty = true
	s.problems = schedule.Validate(s.draft).Errors
	return s
}

// apply hands the draft to the engine. An invalid draft is rejected and
// the active schedule is left alone.
func (s scheduleModel) apply() (scheduleModel, tea.Cmd) {
	if !s.dirty {
		return s, statusCmd("No changes", false)
	}
	next := s.engine.Settings()
	next.Schedule = schedule.Clone(s.draft)
	effects, err := s.engine.ReplaceSettings(next)
	if err != nil {
		var inv *schedule.InvalidError
		if errors.As(err, &inv) {
			s.problems = inv.Problems
		}
		return s, statusCmd("Schedule not saved: fix the problems first", true)
	}
	s.exec.Enqueue(effects...)
	s.dirty = false
	s.problems = nil
	return s, tea.Batch(statusCmd("Schedule saved", false), evaluateCmd)
}

func (s scheduleModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("New Block")
		if s.editing >= 0 {
			title = titleStyle.Render("Edit Block")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := "Schedule"
	if s.dirty {
		title += " (draft)"
	}
	if s.locked {
		title += " 🔒"
	}

	var rows []string
	rows = append(rows, titleStyle.Render(title), "")
	rows = append(rows, renderTimeline(s.draft, max(w-6, 24)), "")

	if len(s.draft) == 0 {
		rows = append(rows, mutedStyle.Render("No blocks. Press n to add one."))
	}

	now, _ := schedule.TimeToMinutes(s.engine.TimeOfDay())
	active, hasActive := schedule.Active(s.draft, now)

	header := mutedStyle.Render(fmt.Sprintf("  %-3s %-18s %-14s %s", "", "Mode", "Time", "Length"))
	if len(s.draft) > 0 {
		rows = append(rows, header)
	}
	for i, b := range s.draft {
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		marker := " "
		if hasActive && b == active {
			marker = successStyle.Render("●")
		}
		length := "?"
		if n, err := b.Duration(); err == nil {
			length = formatMinutes(n)
		}
		d := b.Mode.Display()
		mode := modeStyle(b.Mode).Render(fmt.Sprintf("%-18s", d.Icon+" "+d.Title))
		rows = append(rows, style.Render(cursor)+marker+" "+mode+style.Render(fmt.Sprintf(" %-14s %s", b.Start+"-"+b.End, length)))
	}

	if len(s.problems) > 0 {
		rows = append(rows, "")
		for _, p := range s.problems {
			rows = append(rows, errorStyle.Render("  ✗ "+p))
		}
	} else if s.dirty {
		rows = append(rows, "", successStyle.Render("  ✓ Draft covers the whole day"))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  e: edit  n: new  d: delete  s: apply  esc: discard draft"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// renderTimeline draws the day as a strip of cells coloured by mode.
func renderTimeline(blocks []schedule.Block, width int) string {
	cells := min(width, 48)
	var b strings.Builder
	for i := 0; i < cells; i++ {
		minute := i * schedule.MinutesPerDay / cells
		matches := schedule.Matches(blocks, minute)
		switch len(matches) {
		case 0:
			b.WriteString(mutedStyle.Render("·"))
		case 1:
			b.WriteString(lipgloss.NewStyle().Foreground(modeColors[matches[0].Mode]).Render("█"))
		default:
			b.WriteString(errorStyle.Render("▓"))
		}
	}
	axis := mutedStyle.Render(fmt.Sprintf("%-*s%s", cells-5, "00:00", "24:00"))
	return b.String() + "\n" + axis
}
