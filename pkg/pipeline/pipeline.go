// Package pipeline runs the engraving pipeline: parse → layout → render.
//
// The CLI and the HTTP service both go through this package, so a score
// renders the same way from either entry point.
//
// # Stages
//
//  1. Parse: read text notation or a MIDI file into a [score.Score]
//  2. Layout: build a [staff.Staff] with the configured [staff.Renderer],
//     applying the invalid-event policy
//  3. Render: emit SVG, PNG, PDF, JSON primitives, the layout document or
//     a Graphviz view of the layout tree
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:   data,
//	    Filename: "tune.ly",
//	    Formats:  []string{"svg", "png"},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
//
// Each stage can also be run on its own with [Runner.Parse],
// [Runner.Layout] and [Runner.Render].
//
// [score.Score]: github.com/matzehuels/engrave/pkg/core/score.Score
// [staff.Staff]: github.com/matzehuels/engrave/pkg/core/render/staff.Staff
// [staff.Renderer]: github.com/matzehuels/engrave/pkg/core/render/staff.Renderer
package pipeline

import (
	"bytes"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/engrave/pkg/cache"
	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/fonts"
)

// =============================================================================
// Default values
// =============================================================================

// Output formats.
const (
	FormatSVG      = "svg"
	FormatPNG      = "png"
	FormatPDF      = "pdf"
	FormatJSON     = "json"     // drawing primitives
	FormatDocument = "document" // the layout document
	FormatDOT      = "dot"      // layout tree as Graphviz DOT
	FormatTree     = "tree"     // layout tree rendered to SVG
)

// Source formats.
const (
	SourceText = document.FormatText
	SourceMIDI = document.FormatMIDI
)

// Invalid-event policies.
const (
	PolicySkip        = "skip"
	PolicyPlaceholder = "placeholder"
	PolicyFail        = "fail"
)

const (
	// DefaultPolicy drops events that cannot be laid out.
	DefaultPolicy = PolicySkip

	// DefaultScale is the PNG pixel density.
	DefaultScale = 2.0

	// MaxScale is the largest PNG pixel density accepted.
	MaxScale = 16.0
)

// ValidFormats lists the supported output formats in a stable order.
var ValidFormats = []string{FormatSVG, FormatPNG, FormatPDF, FormatJSON, FormatDocument, FormatDOT, FormatTree}

// ValidPolicies lists the invalid-event policies.
var ValidPolicies = []string{PolicySkip, PolicyPlaceholder, PolicyFail}

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run. The JSON form is accepted by the HTTP
// service.
type Options struct {
	// Parse options
	Source       []byte `json:"-"`
	SourceFormat string `json:"source_format,omitempty"` // text or midi; detected when empty
	Filename     string `json:"filename,omitempty"`
	Track        int    `json:"track,omitempty"` // MIDI track number from 1; 0 picks the first with notes
	Grid         string `json:"grid,omitempty"`  // MIDI quantization, e.g. "16" or "eighth"
	Clef         string `json:"clef,omitempty"`  // MIDI clef override
	Key          string `json:"key,omitempty"`   // MIDI key override, e.g. "2b"
	Refresh      bool   `json:"refresh,omitempty"`

	// Layout options
	Renderer staff.Renderer `json:"renderer"`
	Policy   string         `json:"policy,omitempty"`

	// Render options
	Formats     []string `json:"formats,omitempty"`
	Title       string   `json:"title,omitempty"`
	Outlines    bool     `json:"outlines,omitempty"`
	Background  string   `json:"background,omitempty"`
	Scale       float64  `json:"scale,omitempty"`
	Transparent bool     `json:"transparent,omitempty"`
	Detailed    bool     `json:"detailed,omitempty"` // layout tree detail

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
	Font   *fonts.Font `json:"-"`

	validated bool
}

// Result is the output of [Runner.Execute].
type Result struct {
	// Document holds the score, its layout and diagnostics.
	Document *document.Document

	// Artifacts are the rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains sizes and stage timings.
type Stats struct {
	Events     int
	Measures   int
	Rows       int
	Failed     int
	ParseTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks which stages came from the cache.
type CacheInfo struct {
	ParseHit  bool
	LayoutHit bool
	RenderHit bool // every requested artifact was cached
}

// =============================================================================
// Validation
// =============================================================================

// ValidateFormat checks one output format.
func ValidateFormat(format string) error {
	if !slices.Contains(ValidFormats, format) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format %q (must be one of: %s)", format, strings.Join(ValidFormats, ", "))
	}
	return nil
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePolicy checks an invalid-event policy.
func ValidatePolicy(policy string) error {
	if !slices.Contains(ValidPolicies, policy) {
		return errors.New(errors.ErrCodeInvalidPolicy, "invalid policy %q (must be one of: %s)", policy, strings.Join(ValidPolicies, ", "))
	}
	return nil
}

// ValidateSourceFormat checks a source format.
func ValidateSourceFormat(format string) error {
	if format != SourceText && format != SourceMIDI {
		return errors.New(errors.ErrCodeInvalidInput, "invalid source format %q (must be text or midi)", format)
	}
	return nil
}

// DetectSourceFormat recognizes MIDI by its header or file extension.
// Everything else is text.
func DetectSourceFormat(filename string, data []byte) string {
	if bytes.HasPrefix(data, []byte("MThd")) {
		return SourceMIDI
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mid", ".midi":
		return SourceMIDI
	}
	return SourceText
}

// =============================================================================
// Options methods
// =============================================================================

// ValidateAndSetDefaults prepares options for a full run. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForParse(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForParse checks the source and fills the source format.
func (o *Options) ValidateForParse() error {
	if len(o.Source) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "source is empty")
	}
	if o.SourceFormat == "" {
		o.SourceFormat = DetectSourceFormat(o.Filename, o.Source)
	}
	if o.Track < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "track must not be negative")
	}
	o.setLogger()
	return ValidateSourceFormat(o.SourceFormat)
}

// SetLayoutDefaults fills the renderer and policy.
func (o *Options) SetLayoutDefaults() {
	if o.Renderer == (staff.Renderer{}) {
		o.Renderer = staff.DefaultRenderer()
	} else {
		o.Renderer = o.Renderer.WithDefaults()
	}
	if o.Policy == "" {
		o.Policy = DefaultPolicy
	}
	o.setLogger()
}

// ValidateForLayout sets layout defaults and validates them.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := o.Renderer.Validate(); err != nil {
		return err
	}
	return ValidatePolicy(o.Policy)
}

// SetRenderDefaults fills formats and scale.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	o.setLogger()
}

// ValidateForRender sets layout and render defaults and validates them.
func (o *Options) ValidateForRender() error {
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if !(o.Scale > 0 && o.Scale <= MaxScale) {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be in (0, %g], got %v", MaxScale, o.Scale)
	}
	return errors.ValidateTitle(o.Title)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// fontHash identifies the font in cache keys.
func (o *Options) fontHash() string {
	if o.Font == nil {
		return ""
	}
	return cache.Hash(o.Font.Data())
}

// ScoreKeyOpts returns cache key options for parsing.
func (o *Options) ScoreKeyOpts() cache.ScoreKeyOpts {
	return cache.ScoreKeyOpts{
		Format: o.SourceFormat,
		Track:  o.Track,
		Grid:   o.Grid,
		Clef:   o.Clef,
		Key:    o.Key,
	}
}

// LayoutKeyOpts returns cache key options for layout.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Renderer: o.Renderer,
		Policy:   o.Policy,
		Font:     o.fontHash(),
	}
}

// ArtifactKeyOpts returns cache key options for one output format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, Title: o.Title, Font: o.fontHash()}
	switch format {
	case FormatSVG, FormatPDF:
		k.Outlines = o.Outlines
		k.Background = o.Background
	case FormatPNG:
		k.Scale = o.Scale
		k.Transparent = o.Transparent
	case FormatDOT, FormatTree:
		k.Outlines = o.Detailed
	}
	return k
}
