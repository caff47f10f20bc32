package tui

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sleepclock/internal/audio"
	"github.com/sadopc/sleepclock/internal/engine"
	"github.com/sadopc/sleepclock/internal/export"
	"github.com/sadopc/sleepclock/internal/store"
)

// Deps are the collaborators the kiosk runs against.
type Deps struct {
	Store    *store.Store
	Engine   *engine.Engine
	Executor *engine.Executor
	Player   *audio.Player
	Profile  *store.Profile
	Poll     time.Duration
}

// App is the root Bubble Tea model.
type App struct {
	store   *store.Store
	engine  *engine.Engine
	exec    *engine.Executor
	player  *audio.Player
	profile *store.Profile
	poll    time.Duration
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	locked        bool

	clock    clockModel
	sched    scheduleModel
	history  historyModel
	settings settingsModel
	chooser  chooserModel
	pinpad   pinpadModel

	help    help.Model
	status  string
	isError bool
}

func NewApp(d Deps) App {
	h := help.New()
	h.ShowAll = false

	if d.Poll <= 0 {
		d.Poll = time.Minute
	}

	return App{
		store:      d.Store,
		engine:     d.Engine,
		exec:       d.Executor,
		player:     d.Player,
		profile:    d.Profile,
		poll:       d.Poll,
		activeView: viewClock,
		locked:     true,
		clock:      newClockModel(d.Engine, d.Executor, d.Profile.Name),
		sched:      newScheduleModel(d.Engine, d.Executor),
		history:    newHistoryModel(d.Store, d.Engine, d.Profile.ID),
		settings:   newSettingsModel(d.Engine, d.Executor),
		chooser:    newChooserModel(d.Engine, d.Executor),
		pinpad:     newPinpadModel(d.Engine, d.Executor),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		evaluateCmd,
		tickCmd(),
		pollCmd(a.poll),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func pollCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

// evaluate runs one engine tick. The poll timer, terminal focus and
// settings changes all funnel through here.
func (a App) evaluate() (App, tea.Cmd) {
	t, effects := a.engine.Evaluate()
	if t == nil {
		return a, nil
	}
	log.Printf("mode %s -> %s", t.Previous, t.Current)

	var rest []engine.Effect
	for _, eff := range effects {
		if sc, ok := eff.(engine.ShowStoryChooser); ok {
			a.chooser = a.chooser.open(sc, a.engine.Now())
			continue
		}
		rest = append(rest, eff)
	}
	a.exec.Enqueue(rest...)
	a.clock.cursor = 0
	return a, nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.clock.setSize(a.width, contentHeight)
		a.sched.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		a.chooser.setSize(a.width, contentHeight)
		a.pinpad.setSize(a.width, contentHeight)
		return a, nil

	case tea.FocusMsg, evaluateMsg:
		var cmd tea.Cmd
		a, cmd = a.evaluate()
		return a, cmd

	case pollMsg:
		var cmd tea.Cmd
		a, cmd = a.evaluate()
		return a, tea.Batch(cmd, pollCmd(a.poll))

	case tickMsg:
		var cmd tea.Cmd
		a.chooser, cmd = a.chooser.update(msg)
		return a, tea.Batch(tickCmd(), cmd)

	case statusMsg:
		a.status = msg.text
		a.isError = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.isError = false
		a.exportPicking = false
		return a, nil

	case historyDataMsg:
		var cmd tea.Cmd
		a.history, cmd = a.history.update(msg)
		return a, cmd

	case unlockRequestMsg:
		a.pinpad = a.pinpad.open(a.activeView)
		return a, nil

	case pinResultMsg:
		var cmd tea.Cmd
		a.pinpad, cmd = a.pinpad.result(msg)
		return a, cmd

	case unlockedMsg:
		a = a.setLocked(false)
		a.activeView = a.pinpad.target
		a.status = "Unlocked"
		if msg.pinSet {
			a.status = "PIN saved, unlocked"
		}
		a.isError = false
		return a, nil

	case tea.KeyMsg:
		// Overlays capture every key.
		if a.pinpad.active {
			var cmd tea.Cmd
			a.pinpad, cmd = a.pinpad.update(msg)
			return a, cmd
		}
		if a.chooser.active {
			var cmd tea.Cmd
			a.chooser, cmd = a.chooser.update(msg)
			return a, cmd
		}
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Audio):
			if a.player != nil {
				a.player.Prime()
			}
			a.engine.PrimeAudio()
			return a, statusCmd("Sounds on", false)
		case key.Matches(msg, keys.Lock):
			a = a.setLocked(true)
			a.activeView = viewClock
			return a, statusCmd("Locked", false)
		case key.Matches(msg, keys.Export):
			if a.activeView == viewHistory {
				a.exportPicking = true
				a.exportCursor = 0
				return a, nil
			}
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewClock)
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewSchedule)
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewHistory)
		case key.Matches(msg, keys.Tab4):
			return a.switchView(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
		}
	}

	return a.updateActiveView(msg)
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	switch v {
	case viewSchedule:
		a.sched = a.sched.refresh()
	case viewHistory:
		return a, a.history.refresh()
	}
	return a, nil
}

func (a App) setLocked(locked bool) App {
	a.locked = locked
	a.sched.locked = locked
	a.settings.locked = locked
	if locked {
		a.sched.formActive = false
		a.settings.formActive = false
	}
	return a
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewClock:
		a.clock, cmd = a.clock.update(msg)
	case viewSchedule:
		a.sched, cmd = a.sched.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewSchedule:
		return a.sched.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewClock:
		content = a.clock.view()
	case viewSchedule:
		content = a.sched.view()
	case viewHistory:
		content = a.history.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(a.height-headerHeight-footerHeight, 1)

	switch {
	case a.pinpad.active:
		content = a.pinpad.view()
	case a.chooser.active:
		content = a.chooser.view()
	case a.exportPicking:
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("sleepclock")
	title += mutedStyle.Render(" · " + a.profile.Name)
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.isError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	lock := mutedStyle.Render(" 🔒")
	if !a.locked {
		lock = warningStyle.Render(" 🔓")
	}

	left := footerStyle.Render(helpView)
	right := status + lock

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export History")
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	st, e, profileID := a.store, a.engine, a.profile.ID
	return func() tea.Msg {
		states, err := st.ListDailyStates(profileID, "", "")
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		chores := e.Settings().Chores

		home, _ := os.UserHomeDir()
		dateStr := e.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(home, fmt.Sprintf("sleepclock-history-%s.csv", dateStr))
			if err := export.ToCSV(states, chores, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(home, fmt.Sprintf("sleepclock-history-%s.json", dateStr))
			if err := export.ToJSON(states, chores, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
