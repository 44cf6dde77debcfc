package review

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/catalogsync/catalogsync/internal/schema"
	"github.com/catalogsync/catalogsync/internal/urn"
)

// LoadFunc computes the key plans to review.
type LoadFunc func() ([]schema.KeyPlan, error)

type plansLoadedMsg struct {
	plans []schema.KeyPlan
	err   error
}

// Model is the bubbletea model for reviewing a key plan before it is written.
type Model struct {
	load       LoadFunc
	plans      []schema.KeyPlan
	spinner    spinner.Model
	loading    bool
	cursor     int
	showDetail bool
	confirmed  bool
	cancelled  bool
	done       bool
	err        error
	height     int
}

// NewModel creates a review model. The plans are computed by load once the
// program starts.
func NewModel(load LoadFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = highlightStyle

	return Model{
		load:    load,
		spinner: s,
		loading: true,
		height:  24,
	}
}

func (m Model) Init() tea.Cmd {
	load := m.load
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			plans, err := load()
			return plansLoadedMsg{plans: plans, err: err}
		},
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case plansLoadedMsg:
		m.loading = false
		m.plans = msg.plans
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.done = true
			m.cancelled = true
			return m, tea.Quit
		}
		if m.loading || m.err != nil {
			return m, nil
		}

		switch msg.String() {
		case "enter":
			m.done = true
			m.confirmed = true
			return m, tea.Quit
		case "v":
			m.showDetail = !m.showDetail
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.plans)-1 {
				m.cursor++
			}
		}
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Review key changes"))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString(fmt.Sprintf("  %s Reading catalog and inferring keys...\n", m.spinner.View()))
		return b.String()
	}
	if m.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("  Planning failed: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("  q: quit"))
		return b.String()
	}

	pks, fks := 0, 0
	for _, p := range m.plans {
		pks += len(p.PrimaryKeys)
		fks += len(p.ForeignKeys)
	}
	b.WriteString(highlightStyle.Render(fmt.Sprintf("  %d datasets, %d primary keys, %d foreign keys", len(m.plans), pks, fks)))
	b.WriteString("\n\n")

	for i, p := range m.plans {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		b.WriteString(fmt.Sprintf("%s%-40s PK %-3d FK %d\n", cursor, displayName(p.Dataset), len(p.PrimaryKeys), len(p.ForeignKeys)))
	}

	if m.showDetail && m.cursor < len(m.plans) {
		p := m.plans[m.cursor]
		b.WriteString("\n")
		b.WriteString(highlightStyle.Render("  " + p.Dataset))
		b.WriteString("\n")
		if len(p.PrimaryKeys) > 0 {
			b.WriteString(fmt.Sprintf("    PK: %s\n", strings.Join(p.PrimaryKeys, ", ")))
		}
		for _, fk := range p.ForeignKeys {
			b.WriteString(fmt.Sprintf("    FK %s -> %s\n", fk.Name, displayName(fk.ForeignDataset)))
		}
	}

	b.WriteString("\n")
	b.WriteString(warnStyle.Render("  Pressing enter replaces schemaMetadata on every listed dataset."))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("  ↑/↓: move  v: toggle detail  enter: write  q: cancel"))

	return b.String()
}

func displayName(datasetURN string) string {
	if table, err := urn.TableName(datasetURN); err == nil {
		return table
	}
	return datasetURN
}

// Done returns true when the model is finished.
func (m Model) Done() bool {
	return m.done
}

// Cancelled returns true if the user cancelled.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// Confirmed returns true if the user accepted the plan.
func (m Model) Confirmed() bool {
	return m.confirmed
}

// Plans returns the loaded plans.
func (m Model) Plans() []schema.KeyPlan {
	return m.plans
}

// Run shows the review screen and reports whether the user confirmed.
func Run(load LoadFunc) (bool, error) {
	p := tea.NewProgram(NewModel(load), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running review: %w", err)
	}

	rm := finalModel.(Model)
	if rm.err != nil {
		return false, rm.err
	}
	return rm.Confirmed(), nil
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.DoubleBorder()).BorderBottom(true).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)
