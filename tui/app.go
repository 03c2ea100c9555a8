// Package tui provides a terminal dashboard for the TV Bridge VPN
// subsystem: profile list, live connection status, and connect /
// disconnect keybindings.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yllada/tvbridge/common"
	"github.com/yllada/tvbridge/keyring"
	"github.com/yllada/tvbridge/profile"
	"github.com/yllada/tvbridge/vpn"
)

var (
	primaryColor = lipgloss.Color("#7D56F4")
	mutedColor   = lipgloss.Color("#6C6C6C")
	errorColor   = lipgloss.Color("#FF6B6B")

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	errStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// statusesMsg carries a full status refresh.
type statusesMsg []vpn.ConnectionStatus

// opDoneMsg reports a finished connect or disconnect.
type opDoneMsg struct {
	index  int
	status vpn.ConnectionStatus
	err    error
}

// tickMsg triggers a periodic status refresh.
type tickMsg time.Time

// App wraps the bubbletea program.
type App struct {
	program *tea.Program
}

// New creates the dashboard over the given manager and profile store.
func New(version string, manager *vpn.Manager, profiles *profile.Store) *App {
	m := model{
		version:  version,
		manager:  manager,
		profiles: profiles.List(),
		statuses: make([]vpn.ConnectionStatus, len(profiles.List())),
		spin:     newSpinner(),
		busy:     -1,
	}
	m.table = buildTable(m.profiles, m.statuses)
	return &App{program: tea.NewProgram(m, tea.WithAltScreen())}
}

// Run starts the dashboard and blocks until it exits.
func (a *App) Run() error {
	_, err := a.program.Run()
	return err
}

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)
	return s
}

type model struct {
	version  string
	manager  *vpn.Manager
	profiles []*profile.Profile
	statuses []vpn.ConnectionStatus
	table    table.Model
	spin     spinner.Model
	busy     int // index of the profile with an operation in flight, or -1
	lastErr  string
	width    int
	height   int
}

// Init kicks off the first status refresh and the spinner.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.spin.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(common.WatchInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd queries the status of every profile's tunnel.
func (m model) refreshCmd() tea.Cmd {
	manager := m.manager
	profiles := m.profiles
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), common.WatchInterval)
		defer cancel()

		statuses := make([]vpn.ConnectionStatus, len(profiles))
		for i, p := range profiles {
			statuses[i] = manager.Status(ctx, p.TunnelName(), p.Kind)
		}
		return statusesMsg(statuses)
	}
}

// connectCmd connects the profile at index, using saved credentials for
// OpenVPN profiles that have them.
func (m model) connectCmd(index int) tea.Cmd {
	manager := m.manager
	p := m.profiles[index]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), common.ConnectionTimeout)
		defer cancel()

		var status vpn.ConnectionStatus
		var err error
		if p.Kind == vpn.KindOpenVPN && p.SavePassword {
			password, kerr := keyring.Get(p.ID)
			if kerr != nil {
				return opDoneMsg{index: index, err: kerr}
			}
			authFile, cleanup, aerr := vpn.WriteAuthFile(p.Username, password)
			if aerr != nil {
				return opDoneMsg{index: index, err: aerr}
			}
			defer cleanup()
			status, err = manager.ConnectWithAuth(ctx, p.ConfigPath, authFile)
		} else {
			status, err = manager.Connect(ctx, p.ConfigPath, p.Kind)
		}
		return opDoneMsg{index: index, status: status, err: err}
	}
}

func (m model) disconnectCmd(index int) tea.Cmd {
	manager := m.manager
	p := m.profiles[index]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), common.ConnectionTimeout)
		defer cancel()
		status, err := manager.Disconnect(ctx, p.TunnelName(), p.Kind)
		return opDoneMsg{index: index, status: status, err: err}
	}
}

// Update handles messages: key bindings, ticks, and operation results.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(m.width - 4)
		if h := m.height - 8; h > 3 {
			m.table.SetHeight(h)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.refreshCmd()
		case "c":
			if idx := m.table.Cursor(); m.busy < 0 && idx >= 0 && idx < len(m.profiles) {
				m.busy = idx
				m.lastErr = ""
				return m, tea.Batch(m.connectCmd(idx), m.spin.Tick)
			}
		case "d":
			if idx := m.table.Cursor(); m.busy < 0 && idx >= 0 && idx < len(m.profiles) {
				m.busy = idx
				m.lastErr = ""
				return m, tea.Batch(m.disconnectCmd(idx), m.spin.Tick)
			}
		}

	case statusesMsg:
		m.statuses = msg
		m.table = m.rebuiltTable()

	case opDoneMsg:
		m.busy = -1
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
		if msg.index >= 0 && msg.index < len(m.statuses) {
			m.statuses[msg.index] = msg.status
		}
		m.table = m.rebuiltTable()
		return m, m.refreshCmd()

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(), tickCmd())

	case spinner.TickMsg:
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// rebuiltTable rebuilds the table rows keeping the cursor position.
func (m model) rebuiltTable() table.Model {
	cursor := m.table.Cursor()
	t := buildTable(m.profiles, m.statuses)
	t.SetWidth(m.width - 4)
	if h := m.height - 8; h > 3 {
		t.SetHeight(h)
	}
	t.SetCursor(cursor)
	return t
}

// View renders the dashboard.
func (m model) View() string {
	header := titleStyle.Render(fmt.Sprintf("%s %s — VPN", common.AppName, m.version))

	body := m.table.View()
	if len(m.profiles) == 0 {
		body = helpStyle.Render("No profiles yet. Import one with --add-profile.")
	}

	footer := helpStyle.Render("c: connect • d: disconnect • r: refresh • q: quit")
	if m.busy >= 0 {
		footer = m.spin.View() + " working... " + footer
	}
	if m.lastErr != "" {
		footer = errStyle.Render(m.lastErr) + "\n" + footer
	}

	content := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	if m.width > 0 {
		content = lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, content)
	}
	return content
}

// buildTable initializes the table with profile rows.
func buildTable(profiles []*profile.Profile, statuses []vpn.ConnectionStatus) table.Model {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Kind", Width: 10},
		{Title: "Tunnel", Width: 16},
		{Title: "Endpoint", Width: 24},
		{Title: "Status", Width: 16},
	}

	rows := make([]table.Row, len(profiles))
	for i, p := range profiles {
		status := "Disconnected"
		if i < len(statuses) {
			status = statuses[i].State.String()
		}
		rows[i] = table.Row{p.Name, p.Kind.String(), p.TunnelName(), p.Endpoint, status}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(primaryColor).
		BorderBottom(true).
		Bold(true).
		Foreground(primaryColor)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(primaryColor).
		Bold(true)
	t.SetStyles(s)

	return t
}
