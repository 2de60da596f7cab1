// Package storetest is a conformance suite every store.Store backend runs.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/store"
)

// Run exercises s against the store.Store contract. s must be empty.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("LoadUnknownProject", func(t *testing.T) {
		s := newStore(t)
		_, err := s.LoadProject(context.Background(), "nope")
		assert.True(t, errors.Is(err, errors.ErrCodeProjectNotFound), "got %v", err)
	})

	t.Run("TaskRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		in := graph.Node{
			ID: "t1", Status: "in-progress", ProjectID: "web", OwnerID: "alice",
			Name: "Build", Meta: map[string]any{"estimate": "3d"},
		}
		require.NoError(t, s.SaveTask(ctx, in))

		got, err := s.Task(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, in, got)

		in.Status = "completed"
		require.NoError(t, s.SaveTask(ctx, in))
		got, err = s.Task(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "completed", got.Status)

		_, err = s.Task(ctx, "ghost")
		assert.True(t, errors.Is(err, errors.ErrCodeTaskNotFound), "got %v", err)
	})

	t.Run("SaveTaskRequiresProject", func(t *testing.T) {
		s := newStore(t)
		err := s.SaveTask(context.Background(), graph.Node{ID: "t1"})
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)
	})

	t.Run("Dependencies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, s.SaveTask(ctx, graph.Node{ID: id, Status: "not-started", ProjectID: "web"}))
		}
		ab := graph.Edge{DependentTaskID: "a", PrerequisiteTaskID: "b"}
		bc := graph.Edge{DependentTaskID: "b", PrerequisiteTaskID: "c"}
		require.NoError(t, s.AddDependency(ctx, bc))
		require.NoError(t, s.AddDependency(ctx, ab))

		err := s.AddDependency(ctx, ab)
		assert.True(t, errors.Is(err, errors.ErrCodeDependencyExists), "got %v", err)
		err = s.AddDependency(ctx, graph.Edge{DependentTaskID: "ghost", PrerequisiteTaskID: "a"})
		assert.True(t, errors.Is(err, errors.ErrCodeTaskNotFound), "got %v", err)

		g, err := s.LoadProject(ctx, "web")
		require.NoError(t, err)
		assert.Equal(t, "web", g.ProjectID)
		assert.Equal(t, []string{"a", "b", "c"}, nodeIDs(g))
		assert.Equal(t, []graph.Edge{ab, bc}, g.Edges)

		require.NoError(t, s.RemoveDependency(ctx, ab))
		err = s.RemoveDependency(ctx, ab)
		assert.True(t, errors.Is(err, errors.ErrCodeDependencyNotFound), "got %v", err)

		g, err = s.LoadProject(ctx, "web")
		require.NoError(t, err)
		assert.Equal(t, []graph.Edge{bc}, g.Edges)
	})

	t.Run("ForeignPrerequisite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.SaveTask(ctx, graph.Node{ID: "web-1", Status: "not-started", ProjectID: "web"}))
		require.NoError(t, s.SaveTask(ctx, graph.Node{ID: "api-1", Status: "not-started", ProjectID: "api"}))
		require.NoError(t, s.AddDependency(ctx, graph.Edge{DependentTaskID: "web-1", PrerequisiteTaskID: "api-1"}))

		web, err := s.LoadProject(ctx, "web")
		require.NoError(t, err)
		assert.Equal(t, []string{"api-1", "web-1"}, nodeIDs(web))

		api, err := s.LoadProject(ctx, "api")
		require.NoError(t, err)
		assert.Equal(t, []string{"api-1"}, nodeIDs(api))
		assert.Empty(t, api.Edges)
	})

	t.Run("ImportProject", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.SaveTask(ctx, graph.Node{ID: "old", Status: "not-started", ProjectID: "web"}))
		require.NoError(t, s.SaveTask(ctx, graph.Node{ID: "x", Status: "not-started", ProjectID: "web"}))
		require.NoError(t, s.AddDependency(ctx, graph.Edge{DependentTaskID: "old", PrerequisiteTaskID: "x"}))

		in := graph.Graph{
			ProjectID: "web",
			Nodes: []graph.Node{
				{ID: "p", Status: "not-started"},
				{ID: "q", Status: "completed", OwnerID: "bob"},
			},
			Edges: []graph.Edge{
				{DependentTaskID: "p", PrerequisiteTaskID: "q"},
				{DependentTaskID: "p", PrerequisiteTaskID: "q"},
				{DependentTaskID: "q", PrerequisiteTaskID: "deleted"},
			},
		}
		require.NoError(t, s.ImportProject(ctx, in))

		g, err := s.LoadProject(ctx, "web")
		require.NoError(t, err)
		assert.Equal(t, []string{"old", "p", "q", "x"}, nodeIDs(g))
		assert.Equal(t, []graph.Edge{
			{DependentTaskID: "p", PrerequisiteTaskID: "q"},
			{DependentTaskID: "q", PrerequisiteTaskID: "deleted"},
		}, g.Edges, "import replaces the edge set and keeps dangling edges for scans")

		projects, err := s.Projects(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"web"}, projects)

		err = s.ImportProject(ctx, graph.Graph{})
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)
	})
}

func nodeIDs(g graph.Graph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}
