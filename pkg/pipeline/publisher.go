package pipeline

import (
	"context"
	"sync"

	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/observability"
)

// Publisher releases views under "latest committed state wins".
//
// Every recomputation calls [Publisher.Begin] to obtain a generation and a
// context. Beginning a new generation cancels the context of the previous
// one. [Publisher.Publish] only accepts the current generation, so a slow
// build for an older state can never overwrite a newer view.
//
// A Publisher is safe for concurrent use.
type Publisher struct {
	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	view      graph.View
	published uint64
}

// NewPublisher creates a publisher with no view.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Begin starts a new generation derived from ctx and cancels the previous
// one.
func (p *Publisher) Begin(ctx context.Context) (uint64, context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	ctx, p.cancel = context.WithCancel(ctx)
	return p.gen, ctx
}

// Publish makes v the current view if gen is still the latest generation.
// It reports whether the view was accepted.
func (p *Publisher) Publish(ctx context.Context, gen uint64, v graph.View) bool {
	p.mu.Lock()
	accepted := gen == p.gen && gen > p.published
	if accepted {
		p.view = v
		p.published = gen
	}
	p.mu.Unlock()

	observability.Pipeline().OnPublish(ctx, v.ProjectID, gen, accepted)
	return accepted
}

// Current returns the latest published view and its generation.
// ok is false until the first view is published.
func (p *Publisher) Current() (v graph.View, gen uint64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view, p.published, p.published > 0
}

// Run begins a generation, calls build with its context and publishes the
// result. A build error or a superseded result leaves the current view
// unchanged; the returned bool reports whether the view was published.
func (p *Publisher) Run(ctx context.Context, build func(context.Context) (graph.View, error)) (graph.View, bool, error) {
	gen, bctx := p.Begin(ctx)
	v, err := build(bctx)
	if err != nil {
		return graph.View{}, false, err
	}
	return v, p.Publish(ctx, gen, v), nil
}

// Close cancels the in-flight generation, if any.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
