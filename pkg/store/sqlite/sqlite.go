// Package sqlite implements store.Store on a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	status TEXT NOT NULL,
	owner_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	meta TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);

CREATE TABLE IF NOT EXISTS dependencies (
	project_id TEXT NOT NULL,
	dependent_id TEXT NOT NULL,
	prerequisite_id TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (dependent_id, prerequisite_id)
);
CREATE INDEX IF NOT EXISTS idx_dependencies_project_id ON dependencies(project_id);
`

type taskRow struct {
	ID        string `db:"id"`
	ProjectID string `db:"project_id"`
	Status    string `db:"status"`
	OwnerID   string `db:"owner_id"`
	Name      string `db:"name"`
	Meta      string `db:"meta"`
}

type depRow struct {
	ProjectID      string `db:"project_id"`
	DependentID    string `db:"dependent_id"`
	PrerequisiteID string `db:"prerequisite_id"`
}

// Store is a store.Store backed by SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at dsn, typically a file path.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open sqlite %s", dsn)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping sqlite %s", dsn)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return New(ctx, db)
}

// New wraps an open database and creates the schema if needed.
func New(ctx context.Context, db *sqlx.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "init schema")
	}
	return &Store{db: db}, nil
}

// LoadProject implements store.Store.
func (s *Store) LoadProject(ctx context.Context, projectID string) (graph.Graph, error) {
	var deps []depRow
	err := s.db.SelectContext(ctx, &deps,
		`SELECT project_id, dependent_id, prerequisite_id FROM dependencies WHERE project_id = ?`, projectID)
	if err != nil {
		return graph.Graph{}, errors.Wrap(errors.ErrCodeStorage, err, "load dependencies of %s", projectID)
	}

	var rows []taskRow
	err = s.db.SelectContext(ctx, &rows, `
		SELECT id, project_id, status, owner_id, name, meta FROM tasks
		WHERE project_id = ?
		   OR id IN (SELECT prerequisite_id FROM dependencies WHERE project_id = ?)`,
		projectID, projectID)
	if err != nil {
		return graph.Graph{}, errors.Wrap(errors.ErrCodeStorage, err, "load tasks of %s", projectID)
	}
	if len(rows) == 0 && len(deps) == 0 {
		return graph.Graph{}, errors.New(errors.ErrCodeProjectNotFound, "project %q not found", projectID)
	}

	g := graph.Graph{
		ProjectID: projectID,
		Nodes:     make([]graph.Node, 0, len(rows)),
		Edges:     make([]graph.Edge, 0, len(deps)),
	}
	for _, r := range rows {
		n, err := r.node()
		if err != nil {
			return graph.Graph{}, err
		}
		g.Nodes = append(g.Nodes, n)
	}
	for _, d := range deps {
		g.Edges = append(g.Edges, graph.Edge{DependentTaskID: d.DependentID, PrerequisiteTaskID: d.PrerequisiteID})
	}
	store.SortRecords(&g)
	return g, nil
}

// Task implements store.Store.
func (s *Store) Task(ctx context.Context, taskID string) (graph.Node, error) {
	var r taskRow
	err := s.db.GetContext(ctx, &r,
		`SELECT id, project_id, status, owner_id, name, meta FROM tasks WHERE id = ?`, taskID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return graph.Node{}, errors.New(errors.ErrCodeTaskNotFound, "task %q not found", taskID)
	}
	if err != nil {
		return graph.Node{}, errors.Wrap(errors.ErrCodeStorage, err, "load task %s", taskID)
	}
	return r.node()
}

// SaveTask implements store.Store.
func (s *Store) SaveTask(ctx context.Context, n graph.Node) error {
	if err := errors.ValidateTaskID(n.ID); err != nil {
		return err
	}
	if err := errors.ValidateProjectID(n.ProjectID); err != nil {
		return err
	}
	return saveTask(ctx, s.db, n)
}

// ImportProject implements store.Store. The import is atomic.
func (s *Store) ImportProject(ctx context.Context, g graph.Graph) error {
	nodes, err := store.ImportNodes(g)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "begin import of %s", g.ProjectID)
	}
	defer tx.Rollback()

	for _, n := range nodes {
		if err := saveTask(ctx, tx, n); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE project_id = ?`, g.ProjectID); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "clear dependencies of %s", g.ProjectID)
	}
	for _, e := range g.Edges {
		_, err := tx.NamedExecContext(ctx, insertDep, depRow{
			ProjectID:      g.ProjectID,
			DependentID:    e.DependentTaskID,
			PrerequisiteID: e.PrerequisiteTaskID,
		})
		if err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "import dependency %s", e)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "commit import of %s", g.ProjectID)
	}
	return nil
}

// AddDependency implements store.Store.
func (s *Store) AddDependency(ctx context.Context, e graph.Edge) error {
	var projectID string
	err := s.db.GetContext(ctx, &projectID, `SELECT project_id FROM tasks WHERE id = ?`, e.DependentTaskID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.New(errors.ErrCodeTaskNotFound, "task %q not found", e.DependentTaskID)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "look up task %s", e.DependentTaskID)
	}

	res, err := s.db.NamedExecContext(ctx, insertDep, depRow{
		ProjectID:      projectID,
		DependentID:    e.DependentTaskID,
		PrerequisiteID: e.PrerequisiteTaskID,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save dependency %s", e)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New(errors.ErrCodeDependencyExists, "dependency %s already exists", e)
	}
	return nil
}

// RemoveDependency implements store.Store.
func (s *Store) RemoveDependency(ctx context.Context, e graph.Edge) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dependencies WHERE dependent_id = ? AND prerequisite_id = ?`,
		e.DependentTaskID, e.PrerequisiteTaskID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "remove dependency %s", e)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New(errors.ErrCodeDependencyNotFound, "dependency %s not found", e)
	}
	return nil
}

// Projects implements store.Store.
func (s *Store) Projects(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := s.db.SelectContext(ctx, &ids, `SELECT DISTINCT project_id FROM tasks ORDER BY project_id`); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list projects")
	}
	return ids, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

const insertDep = `
INSERT OR IGNORE INTO dependencies (project_id, dependent_id, prerequisite_id)
VALUES (:project_id, :dependent_id, :prerequisite_id)`

func saveTask(ctx context.Context, db sqlx.ExtContext, n graph.Node) error {
	meta := []byte("{}")
	if len(n.Meta) > 0 {
		var err error
		if meta, err = json.Marshal(n.Meta); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "encode meta of task %s", n.ID)
		}
	}
	_, err := sqlx.NamedExecContext(ctx, db, `
		INSERT OR REPLACE INTO tasks (id, project_id, status, owner_id, name, meta)
		VALUES (:id, :project_id, :status, :owner_id, :name, :meta)`,
		taskRow{
			ID:        n.ID,
			ProjectID: n.ProjectID,
			Status:    n.Status,
			OwnerID:   n.OwnerID,
			Name:      n.Name,
			Meta:      string(meta),
		})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save task %s", n.ID)
	}
	return nil
}

func (r taskRow) node() (graph.Node, error) {
	n := graph.Node{
		ID:        r.ID,
		Status:    r.Status,
		ProjectID: r.ProjectID,
		OwnerID:   r.OwnerID,
		Name:      r.Name,
	}
	if r.Meta != "" && r.Meta != "{}" {
		if err := json.Unmarshal([]byte(r.Meta), &n.Meta); err != nil {
			return graph.Node{}, errors.Wrap(errors.ErrCodeStorage, err, "decode meta of task %s", r.ID)
		}
	}
	return n, nil
}

var _ store.Store = (*Store)(nil)
