package rules

import (
	"github.com/matzehuels/taskgraph/pkg/errors"
)

// Default policy values.
const (
	DefaultMaxDependencyDepth     = 10
	DefaultMaxDependenciesPerTask = 20
	DefaultLongChainThreshold     = 7
)

// Policy holds the structural limits enforced on committed edges.
// A zero numeric field means its default.
type Policy struct {
	// MaxDependencyDepth bounds the longest prerequisite chain, in edges.
	MaxDependencyDepth int `toml:"max_dependency_depth" yaml:"max_dependency_depth" json:"maxDependencyDepth"`

	// MaxDependenciesPerTask bounds how many tasks one task may directly
	// depend on.
	MaxDependenciesPerTask int `toml:"max_dependencies_per_task" yaml:"max_dependencies_per_task" json:"maxDependenciesPerTask"`

	AllowCrossProjectDependency bool `toml:"allow_cross_project" yaml:"allow_cross_project" json:"allowCrossProjectDependency"`
	RequireSameOwner            bool `toml:"require_same_owner" yaml:"require_same_owner" json:"requireSameOwner"`

	// LongChainThreshold is the chain length from which integrity scans
	// suggest splitting work. Never blocks an edit.
	LongChainThreshold int `toml:"long_chain_threshold" yaml:"long_chain_threshold" json:"longChainThreshold"`
}

// DefaultPolicy returns the default limits.
func DefaultPolicy() Policy {
	return Policy{
		MaxDependencyDepth:     DefaultMaxDependencyDepth,
		MaxDependenciesPerTask: DefaultMaxDependenciesPerTask,
		LongChainThreshold:     DefaultLongChainThreshold,
	}
}

// WithDefaults returns a copy of p with zero numeric fields defaulted.
func (p Policy) WithDefaults() Policy {
	if p.MaxDependencyDepth == 0 {
		p.MaxDependencyDepth = DefaultMaxDependencyDepth
	}
	if p.MaxDependenciesPerTask == 0 {
		p.MaxDependenciesPerTask = DefaultMaxDependenciesPerTask
	}
	if p.LongChainThreshold == 0 {
		p.LongChainThreshold = DefaultLongChainThreshold
	}
	return p
}

// Validate checks that all limits are positive.
func (p Policy) Validate() error {
	if p.MaxDependencyDepth < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "max dependency depth must be at least 1, got %d", p.MaxDependencyDepth)
	}
	if p.MaxDependenciesPerTask < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "max dependencies per task must be at least 1, got %d", p.MaxDependenciesPerTask)
	}
	if p.LongChainThreshold < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "long chain threshold must be at least 1, got %d", p.LongChainThreshold)
	}
	return nil
}
