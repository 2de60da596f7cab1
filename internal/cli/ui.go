package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/rules"
)

// Terminal palette (ANSI 256).
var (
	colorTeal  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorRed   = lipgloss.Color("167")
	colorBlue  = lipgloss.Color("75")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	// StyleTitle heads editor screens.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	// StyleHighlight marks task IDs and issue kinds.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorTeal)
	// StyleDim is used for paths, hints and other secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)
	// StyleNumber renders counts and levels.
	StyleNumber = lipgloss.NewStyle().Foreground(colorTeal)

	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleWarning = lipgloss.NewStyle().Foreground(colorAmber)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = styleWarning
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = StyleHighlight
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// status prints one line prefixed by a colored icon.
func status(icon lipgloss.Style, glyph, msg string) {
	fmt.Println(icon.Render(glyph) + " " + msg)
}

func printSuccess(format string, args ...any) {
	status(styleIconSuccess, iconSuccess, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	status(styleIconError, iconError, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	status(styleIconWarning, iconWarning, styleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	status(styleIconInfo, iconInfo, fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile reports a written output file.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + styleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + styleValue.Render(value))
}

// printStats summarizes a graph as "N tasks · M dependencies · cached".
func printStats(tasks, deps int, cached bool) {
	origin := "fresh"
	if cached {
		origin = styleIconSuccess.Render("cached")
	}
	parts := []string{
		fmt.Sprintf("%d tasks", tasks),
		fmt.Sprintf("%d dependencies", deps),
		origin,
	}
	fmt.Println("  " + StyleDim.Render(strings.Join(parts, " · ")))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printVerdict prints the outcome of validating one proposed dependency.
func printVerdict(dependent, prerequisite string, v rules.Verdict) {
	edge := dependent + " " + iconArrow + " " + prerequisite
	switch {
	case !v.Valid:
		printError("%s rejected", edge)
	case v.NeedsConfirmation():
		printWarning("%s allowed with warnings", edge)
	default:
		printSuccess("%s allowed", edge)
	}
	printIssues(v.Errors, styleIconError, iconError)
	printIssues(v.Warnings, styleIconWarning, iconWarning)
}

// printReport prints the outcome of an integrity scan.
func printReport(label string, r rules.Report) {
	if r.Valid {
		printSuccess("%s passed integrity scan", label)
	} else {
		printError("%s has %d integrity issues", label, len(r.Issues))
	}
	printIssues(r.Issues, styleIconError, iconError)
	printIssues(r.Suggestions, styleIconInfo, iconInfo)
}

func printIssues(issues []rules.Issue, icon lipgloss.Style, glyph string) {
	for _, is := range issues {
		line := "  " + icon.Render(glyph) + " " + StyleHighlight.Render(string(is.Kind)) + " " + is.Message
		if len(is.Path) > 0 {
			line += "\n    " + StyleDim.Render(formatPath(is.Path))
		}
		fmt.Println(line)
	}
}

// formatPath joins a task chain with arrows.
func formatPath(ids []string) string {
	return strings.Join(ids, " "+iconArrow+" ")
}

// headerRow is the row index lipgloss tables pass for the header.
const headerRow = -1

var tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...)
}

// levelsTable lists tasks by level, deepest chains first. Critical tasks
// are highlighted.
func levelsTable(v graph.View) string {
	nodes := v.Nodes
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		mark := ""
		if n.Critical {
			mark = "●"
		}
		rows = append(rows, []string{strconv.Itoa(n.Level), n.ID, n.Name, n.Status, mark})
	}
	return newTable("Level", "Task", "Name", "Status", "Critical").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return tableHeaderStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if row < len(nodes) && nodes[row].Critical {
				return base.Foreground(colorTeal)
			}
			if row < len(nodes) && nodes[row].Status == string(dag.StatusCompleted) {
				return base.Foreground(colorDim)
			}
			return base
		}).
		Render()
}

// statsTable renders summary statistics as a two-column table.
func statsTable(s dag.Statistics) string {
	rows := [][]string{
		{"Tasks", strconv.Itoa(s.TotalTasks)},
		{"Dependencies", strconv.Itoa(s.TotalDependencies)},
		{"With prerequisites", strconv.Itoa(s.TasksWithDependencies)},
		{"With dependents", strconv.Itoa(s.TasksWithDependents)},
		{"Avg prerequisites", strconv.FormatFloat(s.AverageDependenciesPerTask, 'f', 2, 64)},
		{"Independent", strconv.Itoa(s.IndependentTasks)},
		{"Roots", strconv.Itoa(s.RootTasks)},
		{"Leaves", strconv.Itoa(s.LeafTasks)},
		{"Completed", strconv.Itoa(s.CompletedTasks)},
		{"Longest chain", strconv.Itoa(s.LongestChain)},
	}
	return newTable("Metric", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return tableHeaderStyle
			case col == 1:
				return StyleNumber.Padding(0, 1)
			}
			return lipgloss.NewStyle().Foreground(colorGray).Padding(0, 1)
		}).
		Render()
}

func printNewline() {
	fmt.Println()
}
