package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kubegov/manifestgate/internal/store"
)

var (
	critStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // dim gray

	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	detailStyle    = lipgloss.NewStyle().Padding(0, 1)
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// vrow is one violation flattened together with the resource it belongs to.
type vrow struct {
	Kind      string
	Namespace string
	Name      string
	Source    string
	V         store.Violation
}

// Model is the BubbleTea model for the review TUI.
type Model struct {
	snap        store.Snapshot
	allRows     []vrow // full sorted set
	rows        []vrow // current view (may be filtered)
	table       table.Model
	width       int
	height      int
	quitting    bool
	searching   bool
	searchInput textinput.Model
}

// NewModel creates a TUI model from a completed snapshot.
func NewModel(snap store.Snapshot) *Model {
	rows := flattenSnapshot(snap)

	cols := []table.Column{
		{Title: "SEV", Width: 8},
		{Title: "CODE", Width: 22},
		{Title: "KIND", Width: 12},
		{Title: "WHERE", Width: 28},
		{Title: "MESSAGE", Width: 40},
	}

	trows := make([]table.Row, len(rows))
	for i := range rows {
		trows[i] = rowToTableRow(&rows[i])
	}

	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("57"))

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(trows),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(s),
	)

	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 64

	return &Model{
		snap:        snap,
		table:       t,
		allRows:     rows,
		rows:        rows,
		width:       80,
		height:      24,
		searchInput: ti,
	}
}

// Init satisfies tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles key events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.updateSearch(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc":
			if m.searchInput.Value() != "" {
				m.searchInput.SetValue("")
				m.applyFilter()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		case "/":
			m.searching = true
			return m, m.searchInput.Focus()
		case "g":
			m.table.GotoTop()
			return m, nil
		case "G":
			m.table.GotoBottom()
			return m, nil
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			n := int(msg.String()[0] - '0')
			if n <= len(m.rows) {
				m.table.SetCursor(n - 1)
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(m.tableHeight())
		m.table.SetWidth(m.width)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.searching = false
			m.searchInput.Blur()
			return m, nil
		case "esc":
			m.searching = false
			m.searchInput.SetValue("")
			m.searchInput.Blur()
			m.applyFilter()
			return m, nil
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(m.tableHeight())
		m.table.SetWidth(m.width)
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

// View renders the full TUI.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteByte('\n')
	b.WriteString(m.table.View())
	b.WriteByte('\n')
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.width)))
	b.WriteByte('\n')
	b.WriteString(m.detailView())
	b.WriteByte('\n')
	b.WriteString(m.footerView())
	return b.String()
}

func (m *Model) headerView() string {
	var crit, warn, info int
	for i := range m.rows {
		switch m.rows[i].V.Severity {
		case store.SeverityCritical:
			crit++
		case store.SeverityWarn:
			warn++
		default:
			info++
		}
	}

	title := headerStyle.Render(fmt.Sprintf("manifestgate · %d resources · %s",
		len(m.snap.Results), m.snap.At.UTC().Format("2006-01-02 15:04 UTC")))

	totalStr := fmt.Sprintf("Total: %d", len(m.rows))
	if len(m.rows) != len(m.allRows) {
		totalStr = fmt.Sprintf("Showing: %d/%d", len(m.rows), len(m.allRows))
	}

	counts := headerStyle.Render(fmt.Sprintf(
		"%s  %s  %s  %s",
		critStyle.Render(fmt.Sprintf("Critical: %d", crit)),
		warnStyle.Render(fmt.Sprintf("Warn: %d", warn)),
		fmt.Sprintf("Info: %d", info),
		totalStr,
	))

	return title + "\n" + counts
}

func (m *Model) detailView() string {
	if len(m.rows) == 0 {
		if m.searchInput.Value() != "" {
			return detailStyle.Render(dimStyle.Render("No matches."))
		}
		return detailStyle.Render("No violations.")
	}

	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return ""
	}

	r := &m.rows[idx]
	var lines []string

	lines = append(lines, fmt.Sprintf("Message: %s", r.V.Message))
	if r.V.Owner != "" {
		lines = append(lines, fmt.Sprintf("Owner: %s", r.V.Owner))
	}
	if r.V.Fix != "" {
		lines = append(lines, fmt.Sprintf("Fix: %s", r.V.Fix))
	}
	if r.Source != "" {
		lines = append(lines, fmt.Sprintf("Source: %s", r.Source))
	}

	return detailStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) footerView() string {
	if m.searching {
		return " /" + m.searchInput.View()
	}
	help := " q quit · ↑↓/jk navigate · g/G top/bottom · 1-9 jump · / search"
	if m.searchInput.Value() != "" {
		help += " · esc clear"
	}
	return dimStyle.Render(help)
}

func (m *Model) tableHeight() int {
	// Reserve space for header, table chrome, separator, detail panel, and footer.
	reserved := 14
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) applyFilter() {
	query := strings.ToLower(m.searchInput.Value())
	if query == "" {
		m.rows = m.allRows
	} else {
		var filtered []vrow
		for i := range m.allRows {
			r := &m.allRows[i]
			hay := strings.ToLower(r.Kind + " " + r.Namespace + " " + r.Name + " " + r.Source + " " + string(r.V.Code) + " " + r.V.Message)
			if strings.Contains(hay, query) {
				filtered = append(filtered, m.allRows[i])
			}
		}
		m.rows = filtered
	}
	m.rebuildRows()
}

func (m *Model) rebuildRows() {
	rows := make([]table.Row, len(m.rows))
	for i := range m.rows {
		rows[i] = rowToTableRow(&m.rows[i])
	}
	m.table.SetRows(rows)
}

// PlainText returns a non-interactive text representation for piped output.
func PlainText(snap store.Snapshot) string {
	rows := flattenSnapshot(snap)
	if len(rows) == 0 {
		return "No violations."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-8s %-22s %-12s %-28s %s\n", "SEV", "CODE", "KIND", "WHERE", "MESSAGE")
	fmt.Fprintf(&b, "%-8s %-22s %-12s %-28s %s\n", "---", "----", "----", "-----", "-------")
	for i := range rows {
		row := rowToTableRow(&rows[i])
		fmt.Fprintf(&b, "%-8s %-22s %-12s %-28s %s\n", row[0], row[1], row[2], row[3], row[4])
	}
	return b.String()
}

// rowToTableRow converts a violation row to plain-text cells (no ANSI).
// Embedding ANSI in cells causes the table to miscalculate column widths
// and truncate escape sequences, bleeding color into adjacent cells/rows.
func rowToTableRow(r *vrow) table.Row {
	var sev string
	switch r.V.Severity {
	case store.SeverityCritical:
		sev = "CRIT"
	case store.SeverityWarn:
		sev = "WARN"
	default:
		sev = "INFO"
	}

	where := r.Name
	if r.Namespace != "" {
		where = r.Namespace + "/" + r.Name
	}

	return table.Row{sev, string(r.V.Code), r.Kind, where, truncate(r.V.Message, 40)}
}

// flattenSnapshot expands every result into one row per violation, sorted
// critical first. Within the same severity, rows keep resource order.
func flattenSnapshot(snap store.Snapshot) []vrow {
	var rows []vrow
	for i := range snap.Results {
		res := &snap.Results[i]
		for _, v := range res.Decision.Violations {
			rows = append(rows, vrow{
				Kind:      res.Kind,
				Namespace: res.Namespace,
				Name:      res.Name,
				Source:    res.Source,
				V:         v,
			})
		}
	}

	sevOrder := map[store.Severity]int{
		store.SeverityCritical: 0,
		store.SeverityWarn:     1,
		store.SeverityInfo:     2,
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return sevOrder[rows[i].V.Severity] < sevOrder[rows[j].V.Severity]
	})

	return rows
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
