package cache

import (
	"github.com/matzehuels/engrave/pkg/core/render/staff"
)

// Keyer derives cache keys for each pipeline stage.
type Keyer interface {
	// ScoreKey addresses a parsed score by the hash of its source.
	ScoreKey(sourceHash string, opts ScoreKeyOpts) string

	// LayoutKey addresses a staff layout by the hash of its score.
	LayoutKey(scoreHash string, opts LayoutKeyOpts) string

	// ArtifactKey addresses a rendered output by the hash of its layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// ScoreKeyOpts are the import options that change a parsed score.
type ScoreKeyOpts struct {
	Format string `json:"format"`
	Track  int    `json:"track,omitempty"`
	Grid   string `json:"grid,omitempty"`
	Clef   string `json:"clef,omitempty"`
	Key    string `json:"key,omitempty"`
}

// LayoutKeyOpts are the options that change a layout.
type LayoutKeyOpts struct {
	Renderer staff.Renderer `json:"renderer"`
	Policy   string         `json:"policy"`
	Font     string         `json:"font,omitempty"` // hash of the metrics font, empty for Bravura
}

// ArtifactKeyOpts are the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	Title       string  `json:"title,omitempty"`
	Font        string  `json:"font,omitempty"`
	Outlines    bool    `json:"outlines,omitempty"`
	Background  string  `json:"background,omitempty"`
	Scale       float64 `json:"scale,omitempty"`
	Transparent bool    `json:"transparent,omitempty"`
}

// DefaultKeyer hashes key options with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ScoreKey returns "score:<hash>".
func (DefaultKeyer) ScoreKey(sourceHash string, opts ScoreKeyOpts) string {
	return hashKey("score", sourceHash, opts)
}

// LayoutKey returns "layout:<hash>".
func (DefaultKeyer) LayoutKey(scoreHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", scoreHash, opts)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

var _ Keyer = DefaultKeyer{}
