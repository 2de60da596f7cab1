// Package editor is the edit surface of a single project.
//
// An Editor owns the committed in-memory graph of one project. Every edit is
// validated by the rule engine, persisted in the store and only then applied
// to the graph, one edit at a time. After each commit the view is rebuilt
// and released through a pipeline.Publisher, so only the newest committed
// state ever reaches the rendering surface.
//
// Editors sharing a store re-read the project before every edit, so an edit
// is validated against everything committed before it started. Validation
// and the store write are not one transaction across processes; two servers
// writing the same project at the same instant can still race, and
// ScanIntegrity reports any cycle that results.
package editor

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/layout"
	"github.com/matzehuels/taskgraph/pkg/pipeline"
	"github.com/matzehuels/taskgraph/pkg/rules"
	"github.com/matzehuels/taskgraph/pkg/store"
)

// Options configures an Editor. Nil fields take defaults: the default
// policy, an uncached runner and the default logger.
type Options struct {
	Engine *rules.Engine
	Runner *pipeline.Runner
	Layout layout.Options
	Logger *log.Logger
}

// Editor serialises validated edits to one project. It is safe for
// concurrent use.
type Editor struct {
	projectID string
	store     store.Store
	engine    *rules.Engine
	runner    *pipeline.Runner
	publisher *pipeline.Publisher
	layout    layout.Options
	logger    *log.Logger

	mu       sync.Mutex
	graph    *dag.Graph
	revision string
}

// Open loads projectID from s and returns an editor for it.
// Stored edges that cannot be placed in the graph are skipped with a
// warning; use [Editor.ScanIntegrity] to report them.
func Open(ctx context.Context, s store.Store, projectID string, opts Options) (*Editor, error) {
	if err := errors.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	if opts.Engine == nil {
		opts.Engine = rules.New(rules.DefaultPolicy())
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, opts.Logger)
	}
	e := &Editor{
		projectID: projectID,
		store:     s,
		engine:    opts.Engine,
		runner:    opts.Runner,
		publisher: pipeline.NewPublisher(),
		layout:    opts.Layout,
		logger:    opts.Logger.With("project", projectID),
	}
	if err := e.Reload(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload replaces the committed graph with the store's current records.
func (e *Editor) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncLocked(ctx)
}

// syncLocked loads the project from the store so that edits are validated
// against dependencies committed by other editors on the same store. The
// revision changes only when the stored project differs from the committed
// graph.
func (e *Editor) syncLocked(ctx context.Context) error {
	records, err := e.store.LoadProject(ctx, e.projectID)
	if err != nil {
		return err
	}
	g, rejected, err := graph.ToDAG(records)
	if err != nil {
		return err
	}
	if e.graph != nil && sameGraph(e.graph, g) {
		return nil
	}
	if len(rejected) > 0 {
		e.logger.Warn("skipped invalid dependencies", "count", len(rejected))
	}
	e.graph = g
	e.revision = uuid.NewString()
	e.logger.Debug("loaded project", "tasks", g.NodeCount(), "dependencies", g.EdgeCount())
	return nil
}

// ProjectID returns the edited project.
func (e *Editor) ProjectID() string { return e.projectID }

// Revision identifies the committed state. It changes on every commit and
// whenever a reload finds different records; views carry the revision they
// were built from.
func (e *Editor) Revision() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// Snapshot returns a copy of the committed graph.
func (e *Editor) Snapshot() *dag.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Clone()
}

// RequestAddDependency validates dependentID → prerequisiteID against the
// committed graph without changing anything. It does not consult the store;
// AddDependency re-validates against the stored project before committing.
func (e *Editor) RequestAddDependency(dependentID, prerequisiteID string) rules.Verdict {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine.Validate(e.graph, dependentID, prerequisiteID)
}

// AddDependency validates the edge and commits it when the verdict is valid
// and either carries no warnings or confirmWarnings is set. The project is
// re-read from the store first, so the verdict covers edges committed by
// other editors. A blocked edit
// returns the verdict with a REJECTED error; an edit with unconfirmed
// warnings returns it with CONFIRMATION_REQUIRED.
//
// A prerequisite outside the project is looked up in the store so policy
// can decide on cross-project dependencies.
func (e *Editor) AddDependency(ctx context.Context, dependentID, prerequisiteID string, confirmWarnings bool) (rules.Verdict, error) {
	e.mu.Lock()
	if err := e.syncLocked(ctx); err != nil {
		e.mu.Unlock()
		return rules.Verdict{}, err
	}

	work := e.graph
	if e.graph.HasNode(dependentID) && !e.graph.HasNode(prerequisiteID) {
		foreign, err := e.foreignTask(ctx, prerequisiteID)
		if err != nil {
			e.mu.Unlock()
			return rules.Verdict{}, err
		}
		if foreign != nil {
			work = e.graph.Clone()
			_ = work.AddNode(*foreign)
		}
	}

	v := e.engine.Validate(work, dependentID, prerequisiteID)
	edge := graph.Edge{DependentTaskID: dependentID, PrerequisiteTaskID: prerequisiteID}
	if !v.Valid {
		e.mu.Unlock()
		e.logger.Info("dependency rejected", "dependency", edge, "errors", issueKinds(v.Errors))
		return v, errors.New(errors.ErrCodeRejected, "dependency %s rejected: %s", edge, v.Errors[0].Message)
	}
	if len(v.Warnings) > 0 && !confirmWarnings {
		e.mu.Unlock()
		return v, errors.New(errors.ErrCodeConfirmationRequired, "dependency %s needs confirmation: %s", edge, v.Warnings[0].Message)
	}

	if err := e.store.AddDependency(ctx, edge); err != nil {
		e.mu.Unlock()
		return v, err
	}
	if err := work.AddEdge(dag.Edge{Dependent: dependentID, Prerequisite: prerequisiteID}); err != nil {
		e.mu.Unlock()
		return v, errors.Wrap(errors.ErrCodeInternal, err, "commit dependency %s", edge)
	}
	e.graph = work
	refresh := e.commitLocked(ctx)
	e.mu.Unlock()

	e.logger.Info("dependency added", "dependency", edge, "warnings", len(v.Warnings))
	refresh()
	return v, nil
}

// RequestRemoveDependency checks that the edge exists. Removal cannot
// introduce a cycle or exceed a limit, so nothing else is validated.
func (e *Editor) RequestRemoveDependency(ctx context.Context, dependentID, prerequisiteID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkEdgeLocked(dependentID, prerequisiteID)
}

// RemoveDependency deletes the edge from the store and the committed graph.
func (e *Editor) RemoveDependency(ctx context.Context, dependentID, prerequisiteID string) error {
	e.mu.Lock()
	if err := e.syncLocked(ctx); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.checkEdgeLocked(dependentID, prerequisiteID); err != nil {
		e.mu.Unlock()
		return err
	}
	edge := graph.Edge{DependentTaskID: dependentID, PrerequisiteTaskID: prerequisiteID}
	if err := e.store.RemoveDependency(ctx, edge); err != nil {
		e.mu.Unlock()
		return err
	}
	work := e.graph.Clone()
	_ = work.RemoveEdge(dependentID, prerequisiteID)
	e.graph = work
	refresh := e.commitLocked(ctx)
	e.mu.Unlock()

	e.logger.Info("dependency removed", "dependency", edge)
	refresh()
	return nil
}

// View returns the view of the committed graph, rebuilding it when the
// published view is older than the current revision.
func (e *Editor) View(ctx context.Context) (graph.View, error) {
	e.mu.Lock()
	if v, _, ok := e.publisher.Current(); ok && v.Revision == e.revision {
		e.mu.Unlock()
		return v, nil
	}
	gen, bctx := e.publisher.Begin(ctx)
	g, rev := e.graph.Clone(), e.revision
	e.mu.Unlock()

	v, err := e.build(bctx, g, rev)
	if err != nil {
		return graph.View{}, err
	}
	e.publisher.Publish(ctx, gen, v)
	return v, nil
}

// ScanIntegrity runs the diagnostic scan over the project's stored records,
// including edges the committed graph had to skip.
func (e *Editor) ScanIntegrity(ctx context.Context) (rules.Report, error) {
	records, err := e.store.LoadProject(ctx, e.projectID)
	if err != nil {
		return rules.Report{}, err
	}
	nodes, edges, err := graph.Records(records)
	if err != nil {
		return rules.Report{}, err
	}
	return e.engine.ScanIntegrity(nodes, edges), nil
}

// Close cancels any in-flight view build.
func (e *Editor) Close() {
	e.publisher.Close()
}

// commitLocked bumps the revision and begins a publisher generation while
// e.mu is held, so generations follow commit order. The returned function
// builds and publishes the view and must be called after unlocking.
func (e *Editor) commitLocked(ctx context.Context) func() {
	e.revision = uuid.NewString()
	g, rev := e.graph.Clone(), e.revision
	gen, bctx := e.publisher.Begin(ctx)
	return func() {
		v, err := e.build(bctx, g, rev)
		if err != nil {
			e.logger.Debug("view build abandoned", "revision", rev, "error", err)
			return
		}
		e.publisher.Publish(ctx, gen, v)
	}
}

func (e *Editor) build(ctx context.Context, g *dag.Graph, revision string) (graph.View, error) {
	v, err := e.runner.BuildViewFromDAG(ctx, e.projectID, g, e.layout)
	if err != nil {
		return graph.View{}, err
	}
	v.Revision = revision
	return v, nil
}

func (e *Editor) checkEdgeLocked(dependentID, prerequisiteID string) error {
	if !e.graph.HasEdge(dependentID, prerequisiteID) {
		return errors.New(errors.ErrCodeDependencyNotFound,
			"task %q does not depend on %q", dependentID, prerequisiteID)
	}
	return nil
}

// foreignTask fetches a task that is not part of the committed graph.
// It returns nil when the store does not know the task either.
func (e *Editor) foreignTask(ctx context.Context, id string) (*dag.Node, error) {
	if errors.ValidateTaskID(id) != nil {
		return nil, nil
	}
	n, err := e.store.Task(ctx, id)
	if errors.Is(err, errors.ErrCodeTaskNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	nodes, _, err := graph.Records(graph.Graph{Nodes: []graph.Node{n}})
	if err != nil {
		return nil, err
	}
	return &nodes[0], nil
}

// sameGraph reports whether a and b hold the same tasks and dependencies.
func sameGraph(a, b *dag.Graph) bool {
	if a.NodeCount() != b.NodeCount() || a.EdgeCount() != b.EdgeCount() {
		return false
	}
	for _, n := range a.Nodes() {
		m, ok := b.Node(n.ID)
		if !ok || m.Status != n.Status || m.ProjectID != n.ProjectID || m.OwnerID != n.OwnerID {
			return false
		}
	}
	return slices.Equal(a.Edges(), b.Edges())
}

func issueKinds(issues []rules.Issue) string {
	kinds := make([]string, len(issues))
	for i, is := range issues {
		kinds[i] = string(is.Kind)
	}
	return strings.Join(kinds, ",")
}
