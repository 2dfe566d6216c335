package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"ranpulse/core-go/internal/feed"
	"ranpulse/core-go/internal/health"
	"ranpulse/core-go/internal/notify"
)

// Dashboard panel indices.
const (
	panelTowers = iota
	panelFeed
	panelNotifications
	panelCount
)

const feedRows = 15

type dashboardModel struct {
	client   *apiClient
	interval time.Duration

	activePanel int
	width       int
	height      int

	snap          snapshotView
	notifications []notify.Notification
	cellIdx       int // 0 is "all"

	loading bool
	err     error
}

// dataLoadedMsg carries one poll result back to the model. scheduled marks
// results of the periodic poll, which re-arm the timer.
type dataLoadedMsg struct {
	snap          snapshotView
	notifications []notify.Notification
	err           error
	scheduled     bool
}

type tickMsg time.Time

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("25")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("25")).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	healthGood = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	healthFair = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	healthPoor = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	markerOK       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	markerDegraded = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	markerDown     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel(client *apiClient, interval time.Duration) dashboardModel {
	return dashboardModel{
		client:      client,
		interval:    interval,
		activePanel: panelTowers,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return m.load(true)
}

func (m dashboardModel) load(scheduled bool) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		snap, err := client.snapshot(ctx)
		if err != nil {
			return dataLoadedMsg{err: fmt.Errorf("loading snapshot: %w", err), scheduled: scheduled}
		}
		notes, err := client.notifications(ctx)
		if err != nil {
			return dataLoadedMsg{err: fmt.Errorf("loading notifications: %w", err), scheduled: scheduled}
		}
		return dataLoadedMsg{snap: snap, notifications: notes, scheduled: scheduled}
	}
}

func (m dashboardModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "c":
			m.cellIdx = (m.cellIdx + 1) % (len(m.snap.Cells) + 1)
			return m, nil
		case "r":
			m.loading = true
			return m, m.load(false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, m.load(true)

	case dataLoadedMsg:
		m.loading = false
		var next tea.Cmd
		if msg.scheduled {
			next = m.tick()
		}
		if msg.err != nil {
			m.err = msg.err
			return m, next
		}
		m.snap = msg.snap
		m.notifications = msg.notifications
		if m.cellIdx > len(m.snap.Cells) {
			m.cellIdx = 0
		}
		m.err = nil
		return m, next
	}

	return m, nil
}

// cellFilter is the selected feed filter.
func (m dashboardModel) cellFilter() string {
	if m.cellIdx == 0 || m.cellIdx > len(m.snap.Cells) {
		return feed.AllCells
	}
	return m.snap.Cells[m.cellIdx-1]
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" RAN Pulse ")
	help := helpStyle.Render("tab: switch panel | c: cycle cell filter | r: refresh | q: quit")

	if m.loading && m.snap.GeneratedAt.IsZero() {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	status := m.renderHeader()
	if m.err != nil {
		status += "\n" + healthPoor.Render("  Error: "+m.err.Error())
	}

	towers := m.renderTowersPanel()
	events := m.renderFeedPanel()
	notes := m.renderNotificationsPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		towers = m.applyPanelStyle(panelTowers, towers, colWidth-4)
		events = m.applyPanelStyle(panelFeed, events, colWidth-4)
		notes = m.applyPanelStyle(panelNotifications, notes, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, towers, events, notes)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		towers = m.applyPanelStyle(panelTowers, towers, panelWidth)
		events = m.applyPanelStyle(panelFeed, events, panelWidth)
		notes = m.applyPanelStyle(panelNotifications, notes, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, towers, events, notes)
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, status, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderHeader() string {
	s := m.snap.Summary
	pct := styleForBand(s.HealthBand).Render(fmt.Sprintf("%d%%", s.HealthPercentage))
	return fmt.Sprintf("  Health %s | Active %d/%d | Down %d | Anomalous %d | Remediated %d | Avg recovery %s | %s",
		pct, s.ActiveTowers, s.TotalTowers, s.DownTowers, s.AnomalousTowers, s.RemediatedTowers, s.AvgRecovery,
		dimStyle.Render("updated "+m.snap.GeneratedAt.Local().Format("15:04:05")))
}

func (m dashboardModel) renderTowersPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Towers"))
	b.WriteString("\n")

	if len(m.snap.Towers) == 0 {
		b.WriteString("  No towers reported.")
		return b.String()
	}

	for _, t := range m.snap.Towers {
		b.WriteString(fmt.Sprintf("  %s %-14s %-10s", styleForMarker(t.Marker).Render("●"), t.Name, t.Health))
		if t.DropRate != nil {
			b.WriteString(fmt.Sprintf(" drop %.1f%%", *t.DropRate))
		}
		if t.Anomaly != nil {
			b.WriteString(dimStyle.Render(fmt.Sprintf(" %d anomalies", t.Anomaly.Count)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m dashboardModel) renderFeedPanel() string {
	var b strings.Builder
	cell := m.cellFilter()
	b.WriteString(headerStyle.Render(fmt.Sprintf("Live feed [%s]", cell)))
	b.WriteString("\n")

	shown := 0
	for _, e := range m.snap.Feed {
		if cell != feed.AllCells && e.CellID != cell {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render(e.Timestamp.Local().Format("15:04:05")), e.Message))
		shown++
		if shown == feedRows {
			break
		}
	}
	if shown == 0 {
		b.WriteString("  No events.")
	}
	return b.String()
}

func (m dashboardModel) renderNotificationsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Notifications"))
	b.WriteString("\n")

	if len(m.notifications) == 0 {
		b.WriteString("  No notifications.")
		return b.String()
	}
	for _, n := range m.notifications {
		lvl := styleForLevel(n.Level).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(n.Level))))
		b.WriteString(fmt.Sprintf("  %s %s\n", lvl, n.Title))
		if n.Description != "" {
			b.WriteString(dimStyle.Render("    "+n.Description) + "\n")
		}
	}
	return b.String()
}

func styleForBand(band string) lipgloss.Style {
	switch band {
	case "good":
		return healthGood
	case "fair":
		return healthFair
	default:
		return healthPoor
	}
}

func styleForMarker(s health.MarkerSeverity) lipgloss.Style {
	switch s {
	case health.MarkerOK:
		return markerOK
	case health.MarkerDegraded:
		return markerDegraded
	default:
		return markerDown
	}
}

func styleForLevel(l notify.Level) lipgloss.Style {
	switch l {
	case notify.LevelError:
		return markerDown
	case notify.LevelWarning:
		return markerDegraded
	default:
		return dimStyle
	}
}

var (
	dashboardServer   string
	dashboardInterval time.Duration
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive terminal dashboard for a running server",
	Long: `Launch a terminal dashboard showing network health, towers, the live
event feed and notifications from a running ranpulse server.

Navigate between panels with Tab, cycle the feed cell filter with c,
refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dashboardInterval <= 0 {
			return fmt.Errorf("--interval must be positive")
		}
		client := newAPIClient(dashboardServer, 10*time.Second)
		p := tea.NewProgram(newDashboardModel(client, dashboardInterval), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardServer, "server", "http://localhost:8081", "ranpulse server base URL")
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 5*time.Second, "refresh interval")
	rootCmd.AddCommand(dashboardCmd)
}
