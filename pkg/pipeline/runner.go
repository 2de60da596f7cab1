package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/taskgraph/pkg/cache"
	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/layout"
	"github.com/matzehuels/taskgraph/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so caching logic lives in one place.
//
// The Runner is stateless except for the cache and logger; multiple
// goroutines can safely share one Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// ViewTTL is the expiry of cached views. Zero means cache.TTLView.
	ViewTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, records graph.Graph, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Build
	buildStart := time.Now()
	d, rejected, err := graph.ToDAG(records)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	v, viewHit, err := r.buildView(ctx, records.ProjectID, d, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.View = v
	result.Rejected = rejected
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = d.NodeCount()
	result.Stats.EdgeCount = d.EdgeCount()
	result.CacheInfo.ViewHit = viewHit

	r.Logger.Info("built view",
		"project", records.ProjectID,
		"tasks", d.NodeCount(),
		"dependencies", d.EdgeCount(),
		"critical", len(v.CriticalPath),
		"duration", result.Stats.BuildTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, v, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// BuildViewWithCacheInfo derives the view of a project's records and
// reports whether it came from the cache. Edges that cannot be placed in
// the DAG are skipped with a warning.
func (r *Runner) BuildViewWithCacheInfo(ctx context.Context, records graph.Graph, opts layout.Options) (graph.View, bool, error) {
	d, _, err := graph.ToDAG(records)
	if err != nil {
		return graph.View{}, false, err
	}
	return r.buildView(ctx, records.ProjectID, d, opts)
}

// BuildView is a convenience wrapper that calls BuildViewWithCacheInfo and discards the cache hit info.
func (r *Runner) BuildView(ctx context.Context, records graph.Graph, opts layout.Options) (graph.View, error) {
	v, _, err := r.BuildViewWithCacheInfo(ctx, records, opts)
	return v, err
}

// BuildViewFromDAG derives the view of an already committed graph.
func (r *Runner) BuildViewFromDAG(ctx context.Context, projectID string, g *dag.Graph, opts layout.Options) (graph.View, error) {
	v, _, err := r.buildView(ctx, projectID, g, opts)
	return v, err
}

func (r *Runner) buildView(ctx context.Context, projectID string, g *dag.Graph, opts layout.Options) (v graph.View, hit bool, err error) {
	start := time.Now()
	observability.Pipeline().OnBuildStart(ctx, projectID, g.NodeCount())
	defer func() {
		observability.Pipeline().OnBuildComplete(ctx, projectID, time.Since(start), err)
	}()

	if err := ctx.Err(); err != nil {
		return graph.View{}, false, err
	}

	// Compute cache key from the canonical records
	data, err := graph.MarshalGraph(g)
	if err != nil {
		return graph.View{}, false, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	key := r.Keyer.ViewKey(projectID, cache.Hash(data), opts)

	// Try cache first
	err = cache.GetJSON(ctx, r.Cache, cache.KeyTypeView, key, &v)
	switch {
	case err == nil:
		r.Logger.Debug("view cache hit", "project", projectID)
		return v, true, nil
	case !stderrors.Is(err, cache.ErrCacheMiss):
		r.Logger.Warn("view cache read failed", "project", projectID, "error", err)
	}

	v = DeriveView(g, projectID, opts)

	// A build superseded while running is not worth caching
	if err := ctx.Err(); err != nil {
		return graph.View{}, false, err
	}

	ttl := r.ViewTTL
	if ttl == 0 {
		ttl = cache.TTLView
	}
	if err := cache.SetJSON(ctx, r.Cache, cache.KeyTypeView, key, v, ttl); err != nil {
		r.Logger.Warn("view cache write failed", "project", projectID, "error", err)
	}
	return v, false, nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, v graph.View, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	// Compute cache key from view data
	viewData, err := graph.MarshalView(v)
	if err != nil {
		return nil, false, fmt.Errorf("serialize view for cache key: %w", err)
	}
	viewHash := cache.Hash(viewData)

	// Try to get all formats from cache
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(viewHash, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil || !hit {
			observability.Cache().OnCacheMiss(ctx, cache.KeyTypeArtifact)
			break
		}
		observability.Cache().OnCacheHit(ctx, cache.KeyTypeArtifact)
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil // All artifacts from cache
	}

	rendered, err := Render(ctx, v, opts)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(viewHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, cache.KeyTypeArtifact, len(data))
		}
	}

	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, v graph.View, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, v, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
