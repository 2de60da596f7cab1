package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/taskgraph/pkg/api"
	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/dag/transform"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/store"
)

// importCommand creates the import command, which loads a graph file into
// the configured store.
func (c *CLI) importCommand() *cobra.Command {
	var (
		project string
		repair  bool
	)

	cmd := &cobra.Command{
		Use:   "import <graph.json>",
		Short: "Import a graph file into the configured store",
		Long: `Import a graph file into the configured store.

Tasks are created or updated and the project's dependencies are replaced
by the file's. Dependencies are stored as given; run 'taskgraph scan
--project ID' afterwards to audit them.

With --repair, dependencies that cannot be stored in a valid graph are
dropped first: dangling, self and duplicate edges, plus one edge per
cycle. Every dropped dependency is listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := readImport(args[0], project)
			if err != nil {
				return err
			}
			if repair {
				var dropped []dag.Edge
				if g, dropped, err = repairGraph(g); err != nil {
					return err
				}
				if len(dropped) > 0 {
					printWarning("Dropped %d dependencies", len(dropped))
					for _, e := range dropped {
						printDetail("%s %s %s", e.Dependent, iconArrow, e.Prerequisite)
					}
				}
			}

			s, err := c.openStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			if err := s.ImportProject(ctx, g); err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			printSuccess("Imported %s", args[0])
			printKeyValue("Project", g.ProjectID)
			printStats(len(g.Nodes), len(g.Edges), false)
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project ID (default: the file's projectId)")
	cmd.Flags().BoolVar(&repair, "repair", false, "drop invalid and cycle-closing dependencies before storing")
	return cmd
}

// importFile reads a graph file and imports it into s. A non-empty
// project overrides the file's project ID.
func importFile(ctx context.Context, s store.Store, path, project string) (graph.Graph, error) {
	g, err := readImport(path, project)
	if err != nil {
		return graph.Graph{}, err
	}
	if err := s.ImportProject(ctx, g); err != nil {
		return graph.Graph{}, fmt.Errorf("import %s: %w", path, err)
	}
	return g, nil
}

func readImport(path, project string) (graph.Graph, error) {
	g, err := graph.ReadGraphFile(path)
	if err != nil {
		return graph.Graph{}, fmt.Errorf("load graph %s: %w", path, err)
	}
	if project != "" {
		g.ProjectID = project
	}
	if g.ProjectID == "" {
		return graph.Graph{}, errors.New(errors.ErrCodeInvalidInput, "%s has no projectId; pass --project", path)
	}
	return g, nil
}

// repairGraph drops the edges a valid project cannot hold and returns the
// graph with the remaining edges. Tasks are kept unchanged.
func repairGraph(g graph.Graph) (graph.Graph, []dag.Edge, error) {
	d, dropped, err := graph.ToDAG(g)
	if err != nil {
		return graph.Graph{}, nil, err
	}
	dropped = append(dropped, transform.BreakCycles(d)...)

	g.Edges = make([]graph.Edge, 0, d.EdgeCount())
	for _, e := range d.Edges() {
		g.Edges = append(g.Edges, graph.Edge{DependentTaskID: e.Dependent, PrerequisiteTaskID: e.Prerequisite})
	}
	return g, dropped, nil
}

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr  string
		seeds []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API.

Projects are read from and written to the configured store. With the
memory store, --seed loads graph files at startup.

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, seeds)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringSliceVar(&seeds, "seed", nil, "graph files to import at startup")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, seeds []string) error {
	s, err := c.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	for _, path := range seeds {
		g, err := importFile(ctx, s, path, "")
		if err != nil {
			return err
		}
		c.Logger.Info("seeded project", "project", g.ProjectID, "tasks", len(g.Nodes))
	}

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv := api.New(s, api.Options{
		Engine: c.newEngine(),
		Runner: runner,
		Layout: c.cfg.Layout,
		Logger: c.Logger,
	})
	defer srv.Close()

	cfg := c.cfg.Server
	if addr != "" {
		cfg.Addr = addr
	}
	return srv.Serve(ctx, cfg)
}
