package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/matzehuels/taskgraph/pkg/layout"
)

// Key types reported to observability hooks.
const (
	KeyTypeView     = "view"
	KeyTypeArtifact = "artifact"
)

// Keyer derives cache keys.
type Keyer interface {
	// ViewKey identifies the view derived from one project state.
	// graphHash is the hash of the project's canonical records.
	ViewKey(projectID, graphHash string, opts layout.Options) string

	// ArtifactKey identifies a rendered artifact of a view.
	ArtifactKey(viewHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the render options that change artifact bytes.
type ArtifactKeyOpts struct {
	Format            string `json:"format"`
	Detailed          bool   `json:"detailed"`
	HighlightCritical bool   `json:"highlight_critical"`
}

// DefaultKeyer hashes key components into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ViewKey returns "view:<sha256>" over the project, graph hash and the
// effective layout options.
func (DefaultKeyer) ViewKey(projectID, graphHash string, opts layout.Options) string {
	return hashKey(KeyTypeView, projectID, graphHash, opts.WithDefaults())
}

// ArtifactKey returns "artifact:<sha256>" over the view hash and options.
func (DefaultKeyer) ArtifactKey(viewHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, viewHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation, e.g.
// several deployments sharing one Redis instance:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "tenant:acme:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ViewKey generates a prefixed view key.
func (k *ScopedKeyer) ViewKey(projectID, graphHash string, opts layout.Options) string {
	return k.prefix + k.inner.ViewKey(projectID, graphHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(viewHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(viewHash, opts)
}

// hashKey returns "<keyType>:<sha256>" over the JSON encoding of parts.
func hashKey(keyType string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return keyType + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data. Views and records are hashed with
// it to build content-addressed keys.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
