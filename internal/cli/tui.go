package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/dag/transform"
	"github.com/matzehuels/taskgraph/pkg/editor"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/rules"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Key Bindings
// =============================================================================

type editKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Remove  key.Binding
	Confirm key.Binding
	Back    key.Binding
	Quit    key.Binding
}

func (k editKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Remove, k.Back, k.Quit}
}

func (k editKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Confirm}}
}

var editKeys = editKeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("⏎", "select")),
	Remove:  key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "unlink")),
	Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
	Back:    key.NewBinding(key.WithKeys("esc", "n"), key.WithHelp("esc", "back")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// =============================================================================
// EditModel - Interactive dependency editing
// =============================================================================

type editStage int

const (
	stageDependent   editStage = iota // choose the task to edit
	stagePrerequisite                 // choose a prerequisite to link or unlink
	stageConfirm                      // acknowledge warnings
)

// commitMsg reports the outcome of an add or remove.
type commitMsg struct {
	dependent, prerequisite string
	removed                 bool
	err                     error
}

// EditModel is the bubbletea model for interactive dependency editing.
// Every candidate prerequisite shows the verdict adding it would get;
// commits go through the editor, so the rules are enforced again.
type EditModel struct {
	ctx    context.Context
	editor *editor.Editor
	keys   editKeyMap
	help   help.Model

	graph    *dag.Graph
	levels   map[string]int
	verdicts map[string]rules.Verdict
	rows     []string

	Stage  editStage
	Cursor int
	Offset int
	Height int

	Dependent    string
	Prerequisite string
	pending      rules.Verdict

	Status    string
	StatusErr bool
	Commits   int
	busy      bool
}

// NewEditModel creates an edit model over ed's committed state.
func NewEditModel(ctx context.Context, ed *editor.Editor) EditModel {
	m := EditModel{
		ctx:    ctx,
		editor: ed,
		keys:   editKeys,
		help:   help.New(),
		Height: 12,
	}
	m.refresh()
	return m
}

// refresh re-reads the committed graph and recomputes the rows of the
// current stage.
func (m *EditModel) refresh() {
	m.graph = m.editor.Snapshot()
	m.levels = transform.AssignLevels(m.graph)
	m.rows = nil
	m.verdicts = nil

	switch m.Stage {
	case stageDependent:
		for _, n := range m.graph.Nodes() {
			if n.ProjectID == m.editor.ProjectID() {
				m.rows = append(m.rows, n.ID)
			}
		}
	default:
		m.verdicts = make(map[string]rules.Verdict)
		for _, id := range m.graph.NodeIDs() {
			if id == m.Dependent {
				continue
			}
			m.rows = append(m.rows, id)
			if !m.graph.HasEdge(m.Dependent, id) {
				m.verdicts[id] = m.editor.RequestAddDependency(m.Dependent, id)
			}
		}
	}

	if m.Cursor >= len(m.rows) {
		m.Cursor = max(len(m.rows)-1, 0)
	}
	m.scroll()
}

func (m *EditModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m *EditModel) setStatus(isErr bool, format string, args ...any) {
	m.Status = fmt.Sprintf(format, args...)
	m.StatusErr = isErr
}

func (m EditModel) Init() tea.Cmd {
	return nil
}

func (m EditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-10, 5)
		m.help.Width = msg.Width
		m.scroll()

	case commitMsg:
		m.busy = false
		m.Stage = stagePrerequisite
		switch {
		case msg.err != nil:
			m.setStatus(true, "%v", msg.err)
		case msg.removed:
			m.Commits++
			m.setStatus(false, "%s no longer depends on %s", msg.dependent, msg.prerequisite)
		default:
			m.Commits++
			m.setStatus(false, "%s now depends on %s", msg.dependent, msg.prerequisite)
		}
		m.refresh()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m EditModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Stage == stageConfirm {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.busy = true
			return m, m.add(true)
		case key.Matches(msg, m.keys.Back):
			m.Stage = stagePrerequisite
			m.setStatus(false, "")
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
			m.scroll()
		}
	case key.Matches(msg, m.keys.Down):
		if m.Cursor < len(m.rows)-1 {
			m.Cursor++
			m.scroll()
		}
	case key.Matches(msg, m.keys.Back):
		if m.Stage == stagePrerequisite {
			m.Stage = stageDependent
			m.Cursor = 0
			m.setStatus(false, "")
			m.refresh()
		}
	case key.Matches(msg, m.keys.Select):
		if len(m.rows) == 0 {
			return m, nil
		}
		id := m.rows[m.Cursor]
		if m.Stage == stageDependent {
			m.Dependent = id
			m.Stage = stagePrerequisite
			m.Cursor = 0
			m.refresh()
			return m, nil
		}
		return m.selectPrerequisite(id)
	case key.Matches(msg, m.keys.Remove):
		if m.Stage != stagePrerequisite || len(m.rows) == 0 {
			return m, nil
		}
		id := m.rows[m.Cursor]
		if !m.graph.HasEdge(m.Dependent, id) {
			m.setStatus(true, "%s does not depend on %s", m.Dependent, id)
			return m, nil
		}
		m.Prerequisite = id
		m.busy = true
		return m, m.remove()
	}
	return m, nil
}

func (m EditModel) selectPrerequisite(id string) (tea.Model, tea.Cmd) {
	m.Prerequisite = id
	if m.graph.HasEdge(m.Dependent, id) {
		m.setStatus(false, "%s already depends on %s (x to unlink)", m.Dependent, id)
		return m, nil
	}
	v := m.verdicts[id]
	switch {
	case !v.Valid:
		m.setStatus(true, "%s: %s", v.Errors[0].Kind, v.Errors[0].Message)
		return m, nil
	case v.NeedsConfirmation():
		m.pending = v
		m.Stage = stageConfirm
		return m, nil
	}
	m.busy = true
	return m, m.add(false)
}

// add commits the selected dependency in the background.
func (m EditModel) add(confirm bool) tea.Cmd {
	ctx, ed, dep, pre := m.ctx, m.editor, m.Dependent, m.Prerequisite
	return func() tea.Msg {
		v, err := ed.AddDependency(ctx, dep, pre, confirm)
		loggerFromContext(ctx).Debug("add dependency", "dependent", dep, "prerequisite", pre, "valid", v.Valid, "err", err)
		return commitMsg{dependent: dep, prerequisite: pre, err: err}
	}
}

// remove deletes the selected dependency in the background.
func (m EditModel) remove() tea.Cmd {
	ctx, ed, dep, pre := m.ctx, m.editor, m.Dependent, m.Prerequisite
	return func() tea.Msg {
		err := ed.RemoveDependency(ctx, dep, pre)
		loggerFromContext(ctx).Debug("remove dependency", "dependent", dep, "prerequisite", pre, "err", err)
		return commitMsg{dependent: dep, prerequisite: pre, removed: true, err: err}
	}
}

func (m EditModel) View() string {
	var b strings.Builder

	switch m.Stage {
	case stageDependent:
		b.WriteString(StyleTitle.Render("Edit " + m.editor.ProjectID()))
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("Select a task to edit its prerequisites"))
	default:
		b.WriteString(StyleTitle.Render("Prerequisites of " + m.Dependent))
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("⏎ link  x unlink  esc back"))
	}
	b.WriteString("\n\n")

	if m.Stage == stageConfirm {
		b.WriteString(m.confirmView())
	} else {
		b.WriteString(m.tableView())
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(m.rows)), len(m.rows))))
	}
	b.WriteString("\n\n")

	if m.Status != "" {
		if m.StatusErr {
			b.WriteString(styleIconError.Render(iconError) + " " + m.Status)
		} else {
			b.WriteString(styleIconSuccess.Render(iconSuccess) + " " + m.Status)
		}
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m EditModel) confirmView() string {
	var b strings.Builder
	b.WriteString(styleWarning.Render(fmt.Sprintf("%s %s %s has warnings:", m.Dependent, iconArrow, m.Prerequisite)))
	b.WriteString("\n")
	for _, w := range m.pending.Warnings {
		b.WriteString("  " + styleIconWarning.Render(iconWarning) + " " + StyleHighlight.Render(string(w.Kind)) + " " + w.Message + "\n")
	}
	b.WriteString("\n")
	b.WriteString(listSelectedStyle.Render("Add anyway? (y/n)"))
	return b.String()
}

func (m EditModel) tableView() string {
	end := min(m.Offset+m.Height, len(m.rows))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		id := m.rows[i]
		n, _ := m.graph.Node(id)

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		row := []string{cursor, id, taskLabel(n), string(n.Status), strconv.Itoa(m.levels[id])}
		if m.Stage != stageDependent {
			row = append(row, m.verdictCell(id))
		}
		rows = append(rows, row)
	}

	headers := []string{"", "Task", "Name", "Status", "Level"}
	if m.Stage != stageDependent {
		headers = append(headers, "Link")
	}

	t := newTable(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return tableHeaderStyle
			}
			idx := m.Offset + row
			if idx >= len(m.rows) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if idx == m.Cursor {
				base = base.Bold(true)
			}
			if m.Stage == stageDependent {
				if idx == m.Cursor {
					return base.Foreground(colorTeal)
				}
				return base
			}
			id := m.rows[idx]
			switch v, ok := m.verdicts[id]; {
			case !ok:
				return base.Foreground(colorTeal)
			case !v.Valid:
				return base.Foreground(colorDim)
			case v.NeedsConfirmation():
				return base.Foreground(colorAmber)
			}
			return base.Foreground(colorGreen)
		})

	return t.Render()
}

// verdictCell summarises what linking id would do.
func (m EditModel) verdictCell(id string) string {
	v, ok := m.verdicts[id]
	switch {
	case !ok:
		return "linked"
	case !v.Valid:
		return iconError + " " + string(v.Errors[0].Kind)
	case v.NeedsConfirmation():
		return iconWarning + " " + string(v.Warnings[0].Kind)
	}
	return iconSuccess
}

// taskLabel returns the task's name, or nothing when it has none.
func taskLabel(n *dag.Node) string {
	if name := graph.TaskName(n); name != n.ID {
		return name
	}
	return ""
}
