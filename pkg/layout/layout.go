package layout

import (
	"maps"
	"math"
	"slices"
)

// Default layout parameters, in render units (pixels for SVG).
const (
	DefaultRowSpacing    = 120.0
	DefaultColumnSpacing = 180.0
	DefaultMargin        = 40.0
	DefaultMinDistance   = 100.0
	DefaultRepulsion     = 2000.0
	DefaultDamping       = 0.5
	DefaultIterations    = 10
)

// Point is a render position.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Options tunes the layout. Zero fields take their defaults; set Iterations
// to a negative value to skip relaxation entirely.
type Options struct {
	RowSpacing    float64 `toml:"row_spacing" yaml:"row_spacing"`
	ColumnSpacing float64 `toml:"column_spacing" yaml:"column_spacing"`
	Margin        float64 `toml:"margin" yaml:"margin"`
	MinDistance   float64 `toml:"min_distance" yaml:"min_distance"`
	Repulsion     float64 `toml:"repulsion" yaml:"repulsion"`
	Damping       float64 `toml:"damping" yaml:"damping"`
	Iterations    int     `toml:"iterations" yaml:"iterations"`
}

// DefaultOptions returns the default layout parameters.
func DefaultOptions() Options {
	return Options{
		RowSpacing:    DefaultRowSpacing,
		ColumnSpacing: DefaultColumnSpacing,
		Margin:        DefaultMargin,
		MinDistance:   DefaultMinDistance,
		Repulsion:     DefaultRepulsion,
		Damping:       DefaultDamping,
		Iterations:    DefaultIterations,
	}
}

// WithDefaults returns a copy of o with zero fields replaced by defaults.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.RowSpacing <= 0 {
		o.RowSpacing = d.RowSpacing
	}
	if o.ColumnSpacing <= 0 {
		o.ColumnSpacing = d.ColumnSpacing
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
	if o.MinDistance <= 0 {
		o.MinDistance = d.MinDistance
	}
	if o.Repulsion <= 0 {
		o.Repulsion = d.Repulsion
	}
	if o.Damping <= 0 || o.Damping > 1 {
		o.Damping = d.Damping
	}
	if o.Iterations == 0 {
		o.Iterations = d.Iterations
	}
	return o
}

// ComputePositions returns a position for every node in byLevel.
//
// Row y = Margin + level*RowSpacing. Nodes of a row keep the order given in
// byLevel, are spaced ColumnSpacing apart and are centered on the widest row.
// When byLevel is nil it is derived from levels with IDs sorted ascending.
// The levels map is only read.
func ComputePositions(levels map[string]int, byLevel map[int][]string, opts Options) map[string]Point {
	opts = opts.WithDefaults()
	if byLevel == nil {
		byLevel = bucket(levels)
	}

	widest := 0
	for _, ids := range byLevel {
		widest = max(widest, len(ids))
	}

	pos := make(map[string]Point)
	for _, level := range slices.Sorted(maps.Keys(byLevel)) {
		ids := byLevel[level]
		offset := float64(widest-len(ids)) * opts.ColumnSpacing / 2
		y := opts.Margin + float64(level)*opts.RowSpacing
		for i, id := range ids {
			pos[id] = Point{X: opts.Margin + offset + float64(i)*opts.ColumnSpacing, Y: y}
		}
	}

	if opts.Iterations > 0 {
		relax(pos, opts)
	}
	return pos
}

func bucket(levels map[string]int) map[int][]string {
	byLevel := make(map[int][]string)
	for _, id := range slices.Sorted(maps.Keys(levels)) {
		byLevel[levels[id]] = append(byLevel[levels[id]], id)
	}
	return byLevel
}

// relax applies pairwise repulsion of magnitude Repulsion/distance to every
// pair closer than MinDistance, scaled by Damping. Coincident pairs are split
// along x, the smaller ID moving left. Coordinates are clamped at zero.
// Stops early once no pair is too close.
func relax(pos map[string]Point, opts Options) {
	ids := slices.Sorted(maps.Keys(pos))
	disp := make([]Point, len(ids))

	for iter := 0; iter < opts.Iterations; iter++ {
		clear(disp)
		moved := false

		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := pos[ids[i]], pos[ids[j]]
				dx, dy := a.X-b.X, a.Y-b.Y
				dist := math.Hypot(dx, dy)
				if dist >= opts.MinDistance {
					continue
				}
				var ux, uy float64
				if dist < 1e-9 {
					ux, uy, dist = -1, 0, 1
				} else {
					ux, uy = dx/dist, dy/dist
				}
				f := opts.Repulsion / dist
				disp[i].X += ux * f
				disp[i].Y += uy * f
				disp[j].X -= ux * f
				disp[j].Y -= uy * f
				moved = true
			}
		}
		if !moved {
			return
		}

		for i, id := range ids {
			p := pos[id]
			p.X = math.Max(0, p.X+disp[i].X*opts.Damping)
			p.Y = math.Max(0, p.Y+disp[i].Y*opts.Damping)
			pos[id] = p
		}
	}
}
