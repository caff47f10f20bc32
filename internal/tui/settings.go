package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/sadopc/sleepclock/internal/engine"
	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/schedule"
	"github.com/sadopc/sleepclock/internal/store"
)

type settingsModel struct {
	engine *engine.Engine
	exec   *engine.Executor
	width  int
	height int

	locked     bool
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	chores        *string
	rewardText    *string
	choresEnabled *bool
	tonieEnabled  *bool
	tonies        *string
	chooserSecs   *string
	soundEnabled  *bool
	volume        *string
	showClock     *bool
	override      *string
}

func newSettingsModel(e *engine.Engine, x *engine.Executor) settingsModel {
	ch, rt, tn, cs, vol, ov := "", "", "", "", "", ""
	ce, te, se, sc := false, false, false, false
	return settingsModel{
		engine:        e,
		exec:          x,
		locked:        true,
		chores:        &ch,
		rewardText:    &rt,
		choresEnabled: &ce,
		tonieEnabled:  &te,
		tonies:        &tn,
		chooserSecs:   &cs,
		soundEnabled:  &se,
		volume:        &vol,
		showClock:     &sc,
		override:      &ov,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			if s.locked {
				return s, unlockRequest
			}
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	cur := s.engine.Settings()
	*s.chores = joinChores(cur.Chores)
	*s.rewardText = cur.RewardText
	*s.choresEnabled = cur.ChoresEnabled
	*s.tonieEnabled = cur.TonieEnabled
	*s.tonies = joinTonies(cur.Tonies)
	*s.chooserSecs = strconv.Itoa(cur.TonieChooserDuration)
	*s.soundEnabled = cur.SoundEnabled
	*s.volume = strconv.Itoa(cur.SoundVolume)
	*s.showClock = cur.ShowClock
	*s.override = s.engine.ClockOverride()

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Bedtime jobs").Value(s.choresEnabled),
			huh.NewInput().Title("Jobs (comma-separated)").Value(s.chores),
			huh.NewInput().Title("Reward text").Value(s.rewardText),
		).Title("Routine"),
		huh.NewGroup(
			huh.NewConfirm().Title("Story chooser").Value(s.tonieEnabled),
			huh.NewInput().Title("Stories (comma-separated)").Value(s.tonies),
			huh.NewInput().Title("Chooser countdown (seconds, 0 = wait)").Value(s.chooserSecs).Validate(validateNonNegative),
		).Title("Stories"),
		huh.NewGroup(
			huh.NewConfirm().Title("Sounds").Value(s.soundEnabled),
			huh.NewInput().Title("Volume (0-100)").Value(s.volume).Validate(validateVolume),
			huh.NewConfirm().Title("Show clock").Value(s.showClock),
			huh.NewInput().Title("Test time (HH:mm, empty = real time)").Value(s.override).Validate(validateOverride),
		).Title("Display"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
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
		return s, s.save()
	}

	return s, cmd
}

func (s settingsModel) save() tea.Cmd {
	next := s.engine.Settings()
	next.Chores = parseChores(*s.chores, next.Chores)
	next.RewardText = strings.TrimSpace(*s.rewardText)
	next.ChoresEnabled = *s.choresEnabled
	next.TonieEnabled = *s.tonieEnabled
	next.Tonies = parseTonies(*s.tonies, next.Tonies)
	next.TonieChooserDuration, _ = strconv.Atoi(strings.TrimSpace(*s.chooserSecs))
	next.SoundEnabled = *s.soundEnabled
	next.SoundVolume, _ = strconv.Atoi(strings.TrimSpace(*s.volume))
	next.ShowClock = *s.showClock

	effects, err := s.engine.ReplaceSettings(next)
	if err != nil {
		return statusCmd(fmt.Sprintf("Settings not saved: %v", err), true)
	}
	s.exec.Enqueue(effects...)
	s.engine.SetClockOverride(strings.TrimSpace(*s.override))
	return tea.Batch(statusCmd("Settings saved", false), evaluateCmd)
}

func validateNonNegative(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return errors.New("enter a whole number of seconds")
	}
	return nil
}

func validateVolume(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 || n > 100 {
		return errors.New("enter a volume between 0 and 100")
	}
	return nil
}

func validateOverride(v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return validateTime(v)
}

func joinChores(chores []routine.Chore) string {
	names := make([]string, len(chores))
	for i, c := range chores {
		names[i] = c.Text
	}
	return strings.Join(names, ", ")
}

func joinTonies(tonies []store.Tonie) string {
	names := make([]string, len(tonies))
	for i, t := range tonies {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseChores keeps the id and emoji of chores whose text is unchanged so
// today's ticks survive an edit.
func parseChores(v string, prev []routine.Chore) []routine.Chore {
	known := make(map[string]routine.Chore, len(prev))
	for _, c := range prev {
		known[c.Text] = c
	}
	var out []routine.Chore
	for _, text := range splitList(v) {
		if c, ok := known[text]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, routine.Chore{ID: uuid.NewString(), Text: text})
	}
	return out
}

func parseTonies(v string, prev []store.Tonie) []store.Tonie {
	known := make(map[string]store.Tonie, len(prev))
	for _, t := range prev {
		known[t.Name] = t
	}
	var out []store.Tonie
	for _, name := range splitList(v) {
		if t, ok := known[name]; ok {
			out = append(out, t)
			continue
		}
		out = append(out, store.Tonie{ID: uuid.NewString(), Name: name})
	}
	return out
}

func onOff(b bool) string {
	if b {
		return successStyle.Render("on")
	}
	return mutedStyle.Render("off")
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	cur := s.engine.Settings()
	title := "Settings"
	hint := "Press enter to edit settings"
	if s.locked {
		title += " 🔒"
		hint = "Press enter and the parent PIN to edit"
	}

	override := s.engine.ClockOverride()
	if override == "" {
		override = "real time"
	}
	pinState := warningStyle.Render("not set")
	if cur.PinHash != "" {
		pinState = successStyle.Render("set")
	}

	items := []struct{ label, value string }{
		{"Bedtime jobs", onOff(cur.ChoresEnabled)},
		{"Jobs", highlightStyle.Render(joinChores(cur.Chores))},
		{"Reward", highlightStyle.Render(cur.RewardText)},
		{"Story chooser", onOff(cur.TonieEnabled)},
		{"Stories", highlightStyle.Render(joinTonies(cur.Tonies))},
		{"Countdown", highlightStyle.Render(fmt.Sprintf("%d s", cur.TonieChooserDuration))},
		{"Sounds", onOff(cur.SoundEnabled)},
		{"Volume", highlightStyle.Render(strconv.Itoa(cur.SoundVolume))},
		{"Show clock", onOff(cur.ShowClock)},
		{"Time", highlightStyle.Render(override)},
		{"Parent PIN", pinState},
	}

	rows := []string{titleStyle.Render(title), ""}
	for _, it := range items {
		label := lipgloss.NewStyle().Width(16).Render(it.label)
		rows = append(rows, fmt.Sprintf("  %s %s", label, it.value))
	}
	if valid := schedule.Validate(cur.Schedule); !valid.Valid {
		rows = append(rows, "", errorStyle.Render("  Active schedule has problems, see Schedule"))
	}
	rows = append(rows, "", mutedStyle.Render(hint))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
