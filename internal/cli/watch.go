package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/4ry1337/openvis/pkg/connection"
	"github.com/4ry1337/openvis/pkg/engine"
	"github.com/4ry1337/openvis/pkg/httputil"
)

// watchNotes is how many notifications the dashboard shows.
const watchNotes = 6

func (c *CLI) watchCommand() *cobra.Command {
	var (
		serverURL string
		interval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live dashboard of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL == "" {
				cfg, err := c.loadConfig()
				if err != nil {
					return err
				}
				serverURL = "http://" + cfg.Server.Addr
			}
			m := newWatchModel(cmd.Context(), httputil.NewClient(), serverURL, interval)
			_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&serverURL, "server", "s", "", "server base URL (default http://<server.addr>)")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "refresh interval")

	return cmd
}

// =============================================================================
// Model
// =============================================================================

// controllerRow is one entry of GET /api/controllers.
type controllerRow struct {
	URL       string            `json:"url"`
	Interval  int64             `json:"interval"`
	Status    connection.Status `json:"status"`
	LastError string            `json:"last_error"`
}

type (
	dashboardMsg struct {
		stats engine.Stats
		ctrls []controllerRow
		notes []connection.Notification
		at    time.Time
	}
	fetchErrMsg struct{ err error }
	refreshMsg  time.Time
)

// watchModel is the bubbletea model behind `openvis watch`.
type watchModel struct {
	ctx      context.Context
	client   *httputil.Client
	base     string
	interval time.Duration

	stats   engine.Stats
	ctrls   []controllerRow
	notes   []connection.Notification
	updated time.Time
	err     error
}

func newWatchModel(ctx context.Context, client *httputil.Client, base string, interval time.Duration) watchModel {
	if interval <= 0 {
		interval = time.Second
	}
	return watchModel{
		ctx:      ctx,
		client:   client,
		base:     strings.TrimRight(base, "/"),
		interval: interval,
	}
}

func (m watchModel) Init() tea.Cmd { return m.fetch() }

func (m watchModel) fetch() tea.Cmd {
	return func() tea.Msg {
		var msg dashboardMsg
		if err := m.client.GetJSON(m.ctx, m.base+"/api/stats", &msg.stats); err != nil {
			return fetchErrMsg{err}
		}
		if err := m.client.GetJSON(m.ctx, m.base+"/api/controllers", &msg.ctrls); err != nil {
			return fetchErrMsg{err}
		}
		if err := m.client.GetJSON(m.ctx, m.base+"/api/notifications", &msg.notes); err != nil {
			return fetchErrMsg{err}
		}
		msg.at = time.Now()
		return msg
	}
}

func (m watchModel) schedule() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}
	case dashboardMsg:
		m.stats, m.ctrls, m.notes, m.updated = msg.stats, msg.ctrls, msg.notes, msg.at
		m.err = nil
		return m, m.schedule()
	case fetchErrMsg:
		m.err = msg.err
		return m, m.schedule()
	case refreshMsg:
		return m, m.fetch()
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("openvis") + StyleDim.Render("  "+m.base))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("r refresh  q quit"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styleIconError.Render(iconError) + " " + StyleError.Render(m.err.Error()))
		b.WriteString("\n\n")
	}
	if m.updated.IsZero() {
		if m.err == nil {
			b.WriteString(StyleDim.Render("connecting..."))
		}
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%s nodes  %s links  %s fading  %s  alpha %s\n\n",
		StyleNumber.Render(fmt.Sprint(m.stats.Nodes)),
		StyleNumber.Render(fmt.Sprint(m.stats.Links)),
		StyleNumber.Render(fmt.Sprint(m.stats.Fading)),
		StyleValue.Render(string(m.stats.State)),
		StyleNumber.Render(fmt.Sprintf("%.3f", m.stats.Alpha)),
	))

	b.WriteString(m.controllerTable())
	b.WriteString("\n")

	if len(m.notes) > 0 {
		b.WriteString("\n")
		start := max(0, len(m.notes)-watchNotes)
		for _, n := range m.notes[start:] {
			b.WriteString(fmt.Sprintf("%s %s %s\n",
				StyleDim.Render(n.Time.Local().Format("15:04:05")),
				levelIcon(n.Level),
				n.Message,
			))
		}
	}

	b.WriteString("\n")
	b.WriteString(StyleDim.Render("updated " + m.updated.Format("15:04:05")))
	return b.String()
}

func (m watchModel) controllerTable() string {
	if len(m.ctrls) == 0 {
		return StyleDim.Render("no controllers connected")
	}
	rows := make([][]string, len(m.ctrls))
	for i, c := range m.ctrls {
		rows[i] = []string{c.URL, string(c.Status), fmt.Sprintf("%dms", c.Interval), c.LastError}
	}
	header := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Controller", "Status", "Interval", "Last error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return header
			}
			if col == 1 && row >= 0 && row < len(m.ctrls) {
				return statusStyle(m.ctrls[row].Status)
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
