package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
)

// input selects where a command reads a project from: a graph JSON file
// given as the argument, or --project loaded from the configured store.
type input struct {
	file    string
	project string
}

func (in *input) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.project, "project", "p", "", "load the project from the configured store")
}

func (in *input) fromArgs(args []string) error {
	if len(args) > 0 {
		in.file = args[0]
	}
	if in.file == "" && in.project == "" {
		return errors.New(errors.ErrCodeInvalidInput, "need a graph file or --project")
	}
	if in.file != "" && in.project != "" {
		return errors.New(errors.ErrCodeInvalidInput, "give either a graph file or --project, not both")
	}
	return nil
}

// label names the input in messages and default output paths.
func (in *input) label() string {
	if in.file != "" {
		return in.file
	}
	return in.project
}

// load reads the project records.
func (c *CLI) load(ctx context.Context, in input) (graph.Graph, error) {
	if in.file != "" {
		g, err := graph.ReadGraphFile(in.file)
		if err != nil {
			return graph.Graph{}, fmt.Errorf("load graph %s: %w", in.file, err)
		}
		return g, nil
	}

	s, err := c.openStore(ctx)
	if err != nil {
		return graph.Graph{}, fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	return s.LoadProject(ctx, in.project)
}

// loadDAG reads the project and builds its graph, warning about stored
// edges that had to be skipped.
func (c *CLI) loadDAG(ctx context.Context, in input) (graph.Graph, *dag.Graph, error) {
	records, err := c.load(ctx, in)
	if err != nil {
		return graph.Graph{}, nil, err
	}
	g, rejected, err := graph.ToDAG(records)
	if err != nil {
		return graph.Graph{}, nil, err
	}
	if len(rejected) > 0 {
		printWarning("Skipped %d invalid dependencies (run 'taskgraph scan' for details)", len(rejected))
	}
	return records, g, nil
}
