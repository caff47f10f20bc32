package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sleepclock/internal/engine"
	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/store"
)

const historyDays = 7

var (
	choresBarStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	booksBarStyle  = lipgloss.NewStyle().Foreground(colorHighlight)
)

type historyModel struct {
	store     *store.Store
	engine    *engine.Engine
	profileID string
	width     int
	height    int

	states []routine.DailyState
	offset int // 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newHistoryModel(s *store.Store, e *engine.Engine, profileID string) historyModel {
	return historyModel{
		store:     s,
		engine:    e,
		profileID: profileID,
		chart:     barchart.New(60, 12),
	}
}

func (h *historyModel) setSize(w, hh int) {
	h.width = w
	h.height = hh
}

type historyDataMsg struct {
	states []routine.DailyState
}

func (h historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		from, to := h.dateRange()
		states, err := h.store.ListDailyStates(h.profileID, from.Format("2006-01-02"), to.Format("2006-01-02"))
		if err != nil {
			return statusMsg{text: fmt.Sprintf("History error: %v", err), isError: true}
		}
		return historyDataMsg{states: states}
	}
}

// dateRange is the half-open window of days shown, ending today.
func (h historyModel) dateRange() (time.Time, time.Time) {
	now := h.engine.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := today.AddDate(0, 0, 1-historyDays*h.offset)
	return end.AddDate(0, 0, -historyDays), end
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		h.states = msg.states
		h.buildChart()
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			h.offset++
			return h, h.refresh()
		case key.Matches(msg, keys.Right):
			if h.offset > 0 {
				h.offset--
			}
			return h, h.refresh()
		}
	}
	return h, nil
}

func (h *historyModel) buildChart() {
	chartWidth := max(h.width-8, 20)
	chartHeight := 10
	if h.height > 30 {
		chartHeight = 14
	}
	h.chart = barchart.New(chartWidth, chartHeight)

	chores := h.engine.Settings().Chores
	byDate := make(map[string]routine.DailyState, len(h.states))
	for _, d := range h.states {
		byDate[d.Date] = d
	}

	from, to := h.dateRange()
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		values := []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		if st, ok := byDate[d.Format("2006-01-02")]; ok {
			values = []barchart.BarValue{
				{Name: "Jobs", Value: float64(st.DoneCount(chores)), Style: choresBarStyle},
				{Name: "Books", Value: float64(st.BooksCount), Style: booksBarStyle},
			}
		}
		bars = append(bars, barchart.BarData{Label: d.Format("Mon 02"), Values: values})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	from, to := h.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s - %s", from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006")))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, titleStyle.Render("History"), "  ", dateLabel)

	legend := "  " + choresBarStyle.Render("●") + " Jobs  " + booksBarStyle.Render("●") + " Books"
	nav := mutedStyle.Render("  ←/→: navigate  x: export")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", h.chart.View(), "", legend, "", h.renderTable(w), "", nav,
		),
	)
}

func (h historyModel) renderTable(w int) string {
	if len(h.states) == 0 {
		return mutedStyle.Render("  No routines recorded for this period")
	}
	chores := h.engine.Settings().Chores

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %-8s %-8s %-10s %s", "Date", "Jobs", "Books", "Step", "Ready")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 50))))
	for _, d := range h.states {
		ready := mutedStyle.Render("-")
		if d.ReadyForSleep() {
			ready = successStyle.Render("✓")
		}
		rows = append(rows, fmt.Sprintf("  %-12s %-8s %-8s %-10s %s",
			d.Date,
			fmt.Sprintf("%d/%d", d.DoneCount(chores), len(chores)),
			fmt.Sprintf("%d/%d", d.BooksCount, routine.MaxBooks),
			string(d.LastCompletedStep),
			ready,
		))
	}
	return strings.Join(rows, "\n")
}
