// Package pipeline derives renderable views from project records.
//
// The pipeline has two stages:
//
//  1. Build: records → DAG → levels, positions, critical path, statistics
//  2. Render: view → JSON, DOT or SVG artifacts
//
// Both stages are pure functions of their inputs and are cached under
// content-addressed keys, so the CLI, the API server and the editor share
// one code path and one cache.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, records, pipeline.Options{
//	    Formats:           []string{pipeline.FormatSVG},
//	    HighlightCritical: true,
//	})
//	svg := result.Artifacts["svg"]
//
// # Publishing
//
// Interactive callers recompute the view after every committed edit. A
// [Publisher] hands out generations so that only the result of the latest
// edit is ever shown: starting a new build cancels the previous one, and a
// superseded result is rejected on publish.
package pipeline

import (
	"time"

	"github.com/matzehuels/taskgraph/pkg/cache"
	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/layout"
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// ValidateFormat returns INVALID_INPUT for an unsupported format.
// Formats are case-sensitive.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "unsupported format %q (want json, dot or svg)", format)
	}
	return nil
}

// ValidateFormats validates every format in the list.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// Options configures a pipeline run.
type Options struct {
	Layout  layout.Options
	Formats []string

	// HighlightCritical draws the critical path in DOT and SVG output.
	HighlightCritical bool

	// Detailed adds level and status to DOT and SVG node labels.
	Detailed bool
}

// ValidateAndSetDefaults defaults Formats to JSON and fills layout
// defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.Layout = o.Layout.WithDefaults()
	return nil
}

// ArtifactKeyOpts returns the options that affect artifact bytes for format.
func (o Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:            format,
		Detailed:          o.Detailed,
		HighlightCritical: o.HighlightCritical,
	}
}

// Result is the output of [Runner.Execute].
type Result struct {
	View      graph.View
	Artifacts map[string][]byte

	// Rejected lists stored edges that could not be placed in the DAG
	// (unknown endpoints, self loops, duplicates). They are left out of the
	// view; the integrity scan reports them.
	Rejected []dag.Edge

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats records pipeline timings and sizes.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	BuildTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo reports which stages were served from the cache.
type CacheInfo struct {
	ViewHit   bool
	RenderHit bool
}
