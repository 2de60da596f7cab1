// Package mongo implements store.Store on MongoDB, for API servers that
// share one database.
//
// Tasks live in the "tasks" collection keyed by ID. Dependencies live in
// "dependencies" with a unique index on the ordered pair.
package mongo

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/taskgraph/pkg/cache"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/store"
)

const (
	collTasks        = "tasks"
	collDependencies = "dependencies"
)

type taskDoc struct {
	ID        string         `bson:"_id"`
	ProjectID string         `bson:"projectId"`
	Status    string         `bson:"status"`
	OwnerID   string         `bson:"ownerId,omitempty"`
	Name      string         `bson:"name,omitempty"`
	Meta      map[string]any `bson:"meta,omitempty"`
}

type depDoc struct {
	ProjectID      string `bson:"projectId"`
	DependentID    string `bson:"dependentTaskId"`
	PrerequisiteID string `bson:"prerequisiteTaskId"`
}

// Store is a store.Store backed by MongoDB.
type Store struct {
	client *mongo.Client
	tasks  *mongo.Collection
	deps   *mongo.Collection
}

// Open connects to uri, selects database and ensures indexes. Connection
// failures are retried with backoff.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongo")
	}
	err = cache.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx, nil); err != nil {
			return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
		}
		return nil
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongo")
	}
	s, err := New(ctx, client.Database(database))
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	s.client = client
	return s, nil
}

// New uses an existing database handle. Close on the returned store does
// not disconnect the client.
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	s := &Store{
		tasks: db.Collection(collTasks),
		deps:  db.Collection(collDependencies),
	}
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.tasks, mongo.IndexModel{Keys: bson.D{{Key: "projectId", Value: 1}}}},
		{s.deps, mongo.IndexModel{Keys: bson.D{{Key: "projectId", Value: 1}}}},
		{s.deps, mongo.IndexModel{
			Keys:    bson.D{{Key: "dependentTaskId", Value: 1}, {Key: "prerequisiteTaskId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}
	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateOne(ctx, ix.model); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "create index on %s", ix.coll.Name())
		}
	}
	return s, nil
}

// LoadProject implements store.Store.
func (s *Store) LoadProject(ctx context.Context, projectID string) (graph.Graph, error) {
	var deps []depDoc
	if err := s.findAll(ctx, s.deps, bson.M{"projectId": projectID}, &deps); err != nil {
		return graph.Graph{}, errors.Wrap(errors.ErrCodeStorage, err, "load dependencies of %s", projectID)
	}
	prereqs := make([]string, 0, len(deps))
	for _, d := range deps {
		prereqs = append(prereqs, d.PrerequisiteID)
	}

	var docs []taskDoc
	filter := bson.M{"$or": bson.A{
		bson.M{"projectId": projectID},
		bson.M{"_id": bson.M{"$in": prereqs}},
	}}
	if err := s.findAll(ctx, s.tasks, filter, &docs); err != nil {
		return graph.Graph{}, errors.Wrap(errors.ErrCodeStorage, err, "load tasks of %s", projectID)
	}
	if len(docs) == 0 && len(deps) == 0 {
		return graph.Graph{}, errors.New(errors.ErrCodeProjectNotFound, "project %q not found", projectID)
	}

	g := graph.Graph{
		ProjectID: projectID,
		Nodes:     make([]graph.Node, 0, len(docs)),
		Edges:     make([]graph.Edge, 0, len(deps)),
	}
	for _, d := range docs {
		g.Nodes = append(g.Nodes, d.node())
	}
	for _, d := range deps {
		g.Edges = append(g.Edges, graph.Edge{DependentTaskID: d.DependentID, PrerequisiteTaskID: d.PrerequisiteID})
	}
	store.SortRecords(&g)
	return g, nil
}

// Task implements store.Store.
func (s *Store) Task(ctx context.Context, taskID string) (graph.Node, error) {
	var d taskDoc
	err := s.tasks.FindOne(ctx, bson.M{"_id": taskID}).Decode(&d)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return graph.Node{}, errors.New(errors.ErrCodeTaskNotFound, "task %q not found", taskID)
	}
	if err != nil {
		return graph.Node{}, errors.Wrap(errors.ErrCodeStorage, err, "load task %s", taskID)
	}
	return d.node(), nil
}

// SaveTask implements store.Store.
func (s *Store) SaveTask(ctx context.Context, n graph.Node) error {
	if err := errors.ValidateTaskID(n.ID); err != nil {
		return err
	}
	if err := errors.ValidateProjectID(n.ProjectID); err != nil {
		return err
	}
	return s.saveTask(ctx, n)
}

// ImportProject implements store.Store. MongoDB standalone servers have no
// transactions, so a failed import may leave tasks upserted and the edge set
// partially replaced; rerunning the import converges.
func (s *Store) ImportProject(ctx context.Context, g graph.Graph) error {
	nodes, err := store.ImportNodes(g)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := s.saveTask(ctx, n); err != nil {
			return err
		}
	}
	if _, err := s.deps.DeleteMany(ctx, bson.M{"projectId": g.ProjectID}); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "clear dependencies of %s", g.ProjectID)
	}
	for _, e := range g.Edges {
		if err := s.insertDep(ctx, g.ProjectID, e); err != nil && !mongo.IsDuplicateKeyError(err) {
			return errors.Wrap(errors.ErrCodeStorage, err, "import dependency %s", e)
		}
	}
	return nil
}

// AddDependency implements store.Store.
func (s *Store) AddDependency(ctx context.Context, e graph.Edge) error {
	dep, err := s.Task(ctx, e.DependentTaskID)
	if err != nil {
		return err
	}
	err = s.insertDep(ctx, dep.ProjectID, e)
	if mongo.IsDuplicateKeyError(err) {
		return errors.New(errors.ErrCodeDependencyExists, "dependency %s already exists", e)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save dependency %s", e)
	}
	return nil
}

// RemoveDependency implements store.Store.
func (s *Store) RemoveDependency(ctx context.Context, e graph.Edge) error {
	res, err := s.deps.DeleteOne(ctx, bson.M{
		"dependentTaskId":    e.DependentTaskID,
		"prerequisiteTaskId": e.PrerequisiteTaskID,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "remove dependency %s", e)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeDependencyNotFound, "dependency %s not found", e)
	}
	return nil
}

// Projects implements store.Store.
func (s *Store) Projects(ctx context.Context) ([]string, error) {
	vals, err := s.tasks.Distinct(ctx, "projectId", bson.M{})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list projects")
	}
	ids := make([]string, 0, len(vals))
	for _, v := range vals {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Drop deletes the store's database.
func (s *Store) Drop(ctx context.Context) error {
	if err := s.tasks.Database().Drop(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "drop database")
	}
	return nil
}

// Close disconnects the client if the store opened it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func (s *Store) saveTask(ctx context.Context, n graph.Node) error {
	d := taskDoc{
		ID:        n.ID,
		ProjectID: n.ProjectID,
		Status:    n.Status,
		OwnerID:   n.OwnerID,
		Name:      n.Name,
		Meta:      n.Meta,
	}
	_, err := s.tasks.ReplaceOne(ctx, bson.M{"_id": n.ID}, d, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save task %s", n.ID)
	}
	return nil
}

func (s *Store) insertDep(ctx context.Context, projectID string, e graph.Edge) error {
	_, err := s.deps.InsertOne(ctx, depDoc{
		ProjectID:      projectID,
		DependentID:    e.DependentTaskID,
		PrerequisiteID: e.PrerequisiteTaskID,
	})
	return err
}

func (s *Store) findAll(ctx context.Context, coll *mongo.Collection, filter any, out any) error {
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (d taskDoc) node() graph.Node {
	return graph.Node{
		ID:        d.ID,
		Status:    d.Status,
		ProjectID: d.ProjectID,
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		Meta:      d.Meta,
	}
}

var _ store.Store = (*Store)(nil)
