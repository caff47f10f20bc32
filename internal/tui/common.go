package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// viewState represents the currently active view.
type viewState int

const (
	viewClock viewState = iota
	viewSchedule
	viewHistory
	viewSettings
)

var viewNames = []string{"Clock", "Schedule", "History", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// tickMsg drives the display once a second.
type tickMsg time.Time

// pollMsg drives the schedule evaluation at the configured interval.
type pollMsg time.Time

// evaluateMsg asks for an immediate schedule evaluation.
type evaluateMsg struct{}

type exportDoneMsg struct {
	path string
}

// unlockRequestMsg asks the app to show the PIN pad for the active view.
type unlockRequestMsg struct{}

type unlockedMsg struct {
	pinSet bool
}

// --- Helpers ---

func unlockRequest() tea.Msg { return unlockRequestMsg{} }

func evaluateCmd() tea.Msg { return evaluateMsg{} }

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}

// formatCountdown renders d as mm:ss, clamping at zero.
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

// formatMinutes renders a minute count as "1h 05m" or "12m".
func formatMinutes(n int) string {
	if n >= 60 {
		return fmt.Sprintf("%dh %02dm", n/60, n%60)
	}
	return fmt.Sprintf("%dm", n)
}
