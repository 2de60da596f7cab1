package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/render/nodelink"
)

// Render generates output artifacts of a view in the requested formats.
// opts.Formats must already be validated.
func Render(ctx context.Context, v graph.View, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	var dot string
	toDOT := func() string {
		if dot == "" {
			dot = nodelink.ToDOT(v, nodelink.Options{
				Detailed:          opts.Detailed,
				HighlightCritical: opts.HighlightCritical,
			})
		}
		return dot
	}

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = graph.MarshalView(v)
		case FormatDOT:
			data = []byte(toDOT())
		case FormatSVG:
			data, err = nodelink.RenderSVG(ctx, toDOT())
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}
