package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/taskgraph/pkg/dag/transform"
	"github.com/matzehuels/taskgraph/pkg/graph"
)

const planJSON = `{
  "projectId": "web",
  "nodes": [
    {"id": "design", "name": "Design"},
    {"id": "build", "name": "Build", "status": "in-progress"},
    {"id": "test", "name": "Test"},
    {"id": "ship", "name": "Ship"},
    {"id": "docs", "status": "completed"}
  ],
  "edges": [
    {"dependentTaskId": "build", "prerequisiteTaskId": "design"},
    {"dependentTaskId": "test", "prerequisiteTaskId": "build"},
    {"dependentTaskId": "ship", "prerequisiteTaskId": "test"}
  ]
}`

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv(configEnv, "")
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestRootCommandRegistersCommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"validate", "layout", "critical", "stats", "scan", "render", "import", "edit", "serve", "cache", "completion"} {
		if !slices.Contains(names, want) {
			t.Errorf("root command missing %q (have %v)", want, names)
		}
	}
}

func TestInputFromArgs(t *testing.T) {
	tests := []struct {
		name    string
		project string
		args    []string
		wantErr bool
	}{
		{"file", "", []string{"plan.json"}, false},
		{"project", "web", nil, false},
		{"neither", "", nil, true},
		{"both", "web", []string{"plan.json"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input{project: tt.project}
			err := in.fromArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("fromArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	plan := writePlan(t, planJSON)

	if err := runCLI(t, "validate", plan, "-d", "ship", "-r", "design"); err != nil {
		t.Errorf("validate allowed edge: %v", err)
	}

	err := runCLI(t, "validate", plan, "-d", "design", "-r", "ship")
	var exit exitError
	if !errors.As(err, &exit) {
		t.Errorf("validate cycle: err = %v, want exitError", err)
	}

	if err := runCLI(t, "validate", plan, "-d", "", "-r", "ship"); err == nil {
		t.Error("validate with empty dependent should fail")
	}
}

func TestLayoutCommand(t *testing.T) {
	plan := writePlan(t, planJSON)
	out := filepath.Join(t.TempDir(), "plan.view.json")

	if err := runCLI(t, "layout", plan, "--no-cache", "-q", "-o", out); err != nil {
		t.Fatalf("layout: %v", err)
	}

	v, err := graph.ReadViewFile(out)
	if err != nil {
		t.Fatalf("ReadViewFile: %v", err)
	}
	if want := []string{"ship", "test", "build", "design"}; !slices.Equal(v.CriticalPath, want) {
		t.Errorf("CriticalPath = %v, want %v", v.CriticalPath, want)
	}
	if got := v.Levels()["ship"]; got != 3 {
		t.Errorf("level(ship) = %d, want 3", got)
	}
}

func TestRenderCommand(t *testing.T) {
	plan := writePlan(t, planJSON)
	base := filepath.Join(t.TempDir(), "out")

	if err := runCLI(t, "render", plan, "--no-cache", "-f", "dot,json", "--highlight", "-o", base); err != nil {
		t.Fatalf("render: %v", err)
	}

	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(dot), "digraph") {
		t.Errorf("dot output does not start with digraph:\n%s", dot)
	}
	if !strings.Contains(string(dot), "penwidth") {
		t.Error("highlighted dot output has no critical edges")
	}
	if _, err := graph.ReadViewFile(base + ".view.json"); err != nil {
		t.Errorf("json output: %v", err)
	}

	if err := runCLI(t, "render", plan, "--no-cache", "-f", "png"); err == nil {
		t.Error("render with unknown format should fail")
	}
}

func TestScanCommand(t *testing.T) {
	if err := runCLI(t, "scan", writePlan(t, planJSON)); err != nil {
		t.Errorf("scan clean plan: %v", err)
	}

	broken := strings.Replace(planJSON,
		`{"dependentTaskId": "ship", "prerequisiteTaskId": "test"}`,
		`{"dependentTaskId": "ship", "prerequisiteTaskId": "test"},
    {"dependentTaskId": "ship", "prerequisiteTaskId": "ghost"}`, 1)
	err := runCLI(t, "scan", writePlan(t, broken))
	var exit exitError
	if !errors.As(err, &exit) {
		t.Errorf("scan broken plan: err = %v, want exitError", err)
	}
}

func TestImportThenLoadFromStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "taskgraph.toml")
	cfg := `[store]
driver = "sqlite"
dsn = "` + filepath.Join(dir, "tasks.db") + `"

[cache]
backend = "none"
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	plan := writePlan(t, planJSON)

	if err := runCLI(t, "--config", cfgPath, "import", plan); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := runCLI(t, "--config", cfgPath, "stats", "--project", "web"); err != nil {
		t.Errorf("stats --project: %v", err)
	}
	if err := runCLI(t, "--config", cfgPath, "validate", "--project", "web", "-d", "design", "-r", "ship"); err == nil {
		t.Error("validate cycle against stored project should fail")
	}
	if err := runCLI(t, "--config", cfgPath, "stats", "--project", "missing"); err == nil {
		t.Error("stats for unknown project should fail")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskgraph.yaml")
	body := "log:\n  level: debug\npolicy:\n  max_dependency_depth: 4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, LogInfo)
	c.configPath = path
	if err := c.loadConfig(); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got := c.Config().Policy.MaxDependencyDepth; got != 4 {
		t.Errorf("MaxDependencyDepth = %d, want 4", got)
	}
	if got := c.Logger.GetLevel(); got != log.DebugLevel {
		t.Errorf("log level = %v, want debug", got)
	}

	c.configPath = filepath.Join(dir, "taskgraph.ini")
	if err := c.loadConfig(); err == nil {
		t.Error("loadConfig with unsupported extension should fail")
	}
}

func TestOutputBase(t *testing.T) {
	if got := outputBase("plans/web.json", ""); got != "plans/web" {
		t.Errorf("outputBase(file) = %q", got)
	}
	if got := outputBase("", "web"); got != "web" {
		t.Errorf("outputBase(project) = %q", got)
	}
	if got := outputBase("plans/web.view.json", ""); got != "plans/web" {
		t.Errorf("outputBase(view) = %q", got)
	}
}

func TestRenderSavedView(t *testing.T) {
	dir := t.TempDir()
	view := filepath.Join(dir, "plan.view.json")
	if err := runCLI(t, "layout", writePlan(t, planJSON), "--no-cache", "-q", "-o", view); err != nil {
		t.Fatalf("layout: %v", err)
	}

	if err := runCLI(t, "render", view, "--no-cache", "-f", "dot"); err != nil {
		t.Fatalf("render saved view: %v", err)
	}
	dot, err := os.ReadFile(filepath.Join(dir, "plan.dot"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dot), "ship") {
		t.Errorf("dot output from saved view lacks tasks:\n%s", dot)
	}

	if err := os.WriteFile(view, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := runCLI(t, "render", view, "--no-cache", "-f", "dot"); err == nil {
		t.Error("render of a corrupt view file should fail")
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var buf strings.Builder
			root := New(io.Discard, LogInfo).RootCommand()
			root.SetArgs([]string{"completion", shell})
			root.SetOut(&buf)
			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s: %v", shell, err)
			}
			if !strings.Contains(buf.String(), "taskgraph") {
				t.Errorf("completion %s output does not mention taskgraph", shell)
			}
		})
	}

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"completion", "tcsh"})
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil {
		t.Error("completion for unsupported shell should fail")
	}
}

func sqliteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "taskgraph.toml")
	body := "[store]\ndriver = \"sqlite\"\ndsn = \"" + filepath.Join(dir, "tasks.db") + "\"\n\n[cache]\nbackend = \"none\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const brokenEdges = `{"dependentTaskId": "ship", "prerequisiteTaskId": "test"},
    {"dependentTaskId": "design", "prerequisiteTaskId": "ship"},
    {"dependentTaskId": "ship", "prerequisiteTaskId": "ghost"}`

func TestRepairGraph(t *testing.T) {
	g, err := graph.ReadGraphFile(writePlan(t, strings.Replace(planJSON,
		`{"dependentTaskId": "ship", "prerequisiteTaskId": "test"}`, brokenEdges, 1)))
	if err != nil {
		t.Fatal(err)
	}

	repaired, dropped, err := repairGraph(g)
	if err != nil {
		t.Fatalf("repairGraph: %v", err)
	}
	if len(dropped) != 2 {
		t.Errorf("dropped %v, want the ghost edge and one cycle edge", dropped)
	}
	if len(repaired.Edges) != 3 || len(repaired.Nodes) != len(g.Nodes) {
		t.Errorf("repaired graph has %d edges and %d tasks, want 3 and %d",
			len(repaired.Edges), len(repaired.Nodes), len(g.Nodes))
	}
	d, rejected, err := graph.ToDAG(repaired)
	if err != nil || len(rejected) != 0 {
		t.Fatalf("ToDAG(repaired): rejected %v, err %v", rejected, err)
	}
	if cycles := transform.FindCycles(d); len(cycles) != 0 {
		t.Errorf("repaired graph still has cycles: %v", cycles)
	}
}

func TestImportRepair(t *testing.T) {
	broken := writePlan(t, strings.Replace(planJSON,
		`{"dependentTaskId": "ship", "prerequisiteTaskId": "test"}`, brokenEdges, 1))

	cfg := sqliteConfig(t)
	if err := runCLI(t, "--config", cfg, "import", broken); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := runCLI(t, "--config", cfg, "scan", "--project", "web"); err == nil {
		t.Error("scan should fail after importing a cyclic plan as given")
	}

	cfg = sqliteConfig(t)
	if err := runCLI(t, "--config", cfg, "import", "--repair", broken); err != nil {
		t.Fatalf("import --repair: %v", err)
	}
	if err := runCLI(t, "--config", cfg, "scan", "--project", "web"); err != nil {
		t.Errorf("scan after import --repair: %v", err)
	}
}
