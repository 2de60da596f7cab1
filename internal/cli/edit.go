package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/taskgraph/pkg/editor"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/store"
)

// editCommand creates the edit command, an interactive dependency editor.
func (c *CLI) editCommand() *cobra.Command {
	var in input

	cmd := &cobra.Command{
		Use:   "edit [graph.json]",
		Short: "Edit dependencies interactively",
		Long: `Edit dependencies interactively.

Pick a task, then link or unlink prerequisites. Each candidate shows the
verdict linking it would get; edits with warnings ask for confirmation.

With a graph file, changes are written back to the file on exit. With
--project, every change is committed to the configured store immediately.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.fromArgs(args); err != nil {
				return err
			}
			return c.runEdit(cmd.Context(), in)
		},
	}

	in.addFlags(cmd)
	return cmd
}

func (c *CLI) runEdit(ctx context.Context, in input) error {
	var (
		s         store.Store
		projectID = in.project
		original  graph.Graph
		err       error
	)
	if in.file != "" {
		s = store.NewMemory()
		if original, err = importFile(ctx, s, in.file, ""); err != nil {
			return err
		}
		projectID = original.ProjectID
	} else if s, err = c.openStore(ctx); err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	ed, err := editor.Open(ctx, s, projectID, editor.Options{
		Engine: c.newEngine(),
		Runner: runner,
		Layout: c.cfg.Layout,
		Logger: c.Logger,
	})
	if err != nil {
		return err
	}
	defer ed.Close()

	ctx = withLogger(ctx, c.Logger)
	final, err := tea.NewProgram(NewEditModel(ctx, ed), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("edit session: %w", err)
	}

	m, ok := final.(EditModel)
	if !ok || m.Commits == 0 {
		printInfo("No changes")
		return nil
	}

	if in.file != "" {
		if err := writeBack(ctx, s, original, in.file); err != nil {
			return err
		}
		printSuccess("Saved %d changes", m.Commits)
		printFile(in.file)
		return nil
	}
	printSuccess("Committed %d changes to %s", m.Commits, projectID)
	return nil
}

// writeBack stores the edited edge set in the graph file. Tasks are kept
// as they were read; only dependencies change during an edit.
func writeBack(ctx context.Context, s store.Store, original graph.Graph, path string) error {
	edited, err := s.LoadProject(ctx, original.ProjectID)
	if err != nil {
		return err
	}
	original.Edges = edited.Edges
	if err := graph.WriteGraphFile(original, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
