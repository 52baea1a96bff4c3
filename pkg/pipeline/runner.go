package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/engrave/pkg/cache"
	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/observability"
)

// Runner runs the pipeline with caching.
//
// The Runner holds no pipeline results, only the cache and logger, so
// multiple goroutines can share one Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer uses [cache.DefaultKeyer] and a
// nil cache disables caching.
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
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs parse → layout → render.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	start := time.Now()
	sc, hit, err := r.ParseWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	result.Stats.ParseTime = time.Since(start)
	result.Stats.Events = sc.Len()
	result.Stats.Measures = len(sc.Measures)
	result.CacheInfo.ParseHit = hit
	r.Logger.Info("parsed score", "events", result.Stats.Events, "measures", result.Stats.Measures, "duration", result.Stats.ParseTime)

	doc := NewDocument(sc, opts)

	start = time.Now()
	l, hit, err := r.LayoutWithCacheInfo(ctx, sc, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	doc.Renderer = opts.Renderer
	doc.Staff = l.Staff
	doc.Diagnostics = l.Diagnostics
	result.Document = doc
	result.Stats.LayoutTime = time.Since(start)
	result.Stats.Rows = len(l.Staff.Rows)
	result.Stats.Failed = len(l.Diagnostics)
	result.CacheInfo.LayoutHit = hit
	r.Logger.Info("laid out staff", "rows", result.Stats.Rows, "failed", result.Stats.Failed, "duration", result.Stats.LayoutTime)

	start = time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(start)
	result.CacheInfo.RenderHit = hit
	r.Logger.Info("rendered outputs", "formats", opts.Formats, "duration", result.Stats.RenderTime)

	return result, nil
}

// NewDocument wraps a parsed score in a document recording its source.
// Text sources are kept verbatim.
func NewDocument(sc *score.Score, opts Options) *document.Document {
	src := document.Source{
		Format:   opts.SourceFormat,
		Filename: opts.Filename,
		Hash:     cache.Hash(opts.Source),
	}
	if opts.SourceFormat == SourceText {
		src.Text = string(opts.Source)
	}
	doc := document.New(sc, src)
	if opts.Title != "" {
		doc.Title = opts.Title
	}
	doc.Renderer = opts.Renderer
	return doc
}

// ParseWithCacheInfo parses the source, reporting whether the score came
// from the cache. opts.Refresh bypasses the cache.
func (r *Runner) ParseWithCacheInfo(ctx context.Context, opts Options) (sc *score.Score, hit bool, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForParse(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnParseStart(ctx, opts.SourceFormat, len(opts.Source))
	start := time.Now()
	defer func() {
		events := 0
		if sc != nil {
			events = sc.Len()
		}
		hooks.OnParseComplete(ctx, opts.SourceFormat, events, time.Since(start), err)
	}()

	key := r.Keyer.ScoreKey(cache.Hash(opts.Source), opts.ScoreKeyOpts())
	if !opts.Refresh {
		var cached score.Score
		if r.get(ctx, "score", key, &cached) {
			return &cached, true, nil
		}
	}

	sc, err = Parse(ctx, opts)
	if err != nil {
		return nil, false, err
	}
	r.set(ctx, "score", key, sc, cache.TTLScore)
	return sc, false, nil
}

// Parse calls [Runner.ParseWithCacheInfo] and drops the cache info.
func (r *Runner) Parse(ctx context.Context, opts Options) (*score.Score, error) {
	sc, _, err := r.ParseWithCacheInfo(ctx, opts)
	return sc, err
}

// LayoutWithCacheInfo lays out sc, reporting whether the layout came from
// the cache.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, sc *score.Score, opts Options) (l Layout, hit bool, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return Layout{}, false, err
	}
	if sc == nil {
		return Layout{}, false, errors.New(errors.ErrCodeInvalidInput, "no score to lay out")
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, len(sc.Measures))
	start := time.Now()
	defer func() {
		rows := 0
		if l.Staff != nil {
			rows = len(l.Staff.Rows)
		}
		hooks.OnLayoutComplete(ctx, rows, len(l.Diagnostics), time.Since(start), err)
	}()

	data, err := json.Marshal(sc)
	if err != nil {
		return Layout{}, false, errors.Wrap(errors.ErrCodeInternal, err, "encode score")
	}
	key := r.Keyer.LayoutKey(cache.Hash(data), opts.LayoutKeyOpts())

	var cached Layout
	if r.get(ctx, "layout", key, &cached) && cached.Staff != nil {
		return cached, true, nil
	}

	l, err = GenerateLayout(ctx, sc, opts)
	if err != nil {
		return Layout{}, false, err
	}
	r.set(ctx, "layout", key, l, cache.TTLLayout)
	return l, false, nil
}

// Layout calls [Runner.LayoutWithCacheInfo] and drops the cache info.
func (r *Runner) Layout(ctx context.Context, sc *score.Score, opts Options) (Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, sc, opts)
	return l, err
}

// RenderWithCacheInfo renders doc, reporting whether every artifact came
// from the cache. The document format is never cached since it carries
// the document's id and timestamps.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, doc *document.Document, opts Options) (artifacts map[string][]byte, hit bool, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	if doc == nil || doc.Staff == nil {
		return nil, false, errors.New(errors.ErrCodeInvalidInput, "document has no layout")
	}
	if opts.Title == "" {
		opts.Title = doc.Title
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	defer func() { hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err) }()

	data, err := json.Marshal(doc.Staff)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "encode staff")
	}
	layoutHash := cache.Hash(data)

	artifacts = make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if format != FormatDocument {
			key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			if data, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
				observability.Cache().OnCacheHit(ctx, "artifact")
				artifacts[format] = data
				continue
			}
			observability.Cache().OnCacheMiss(ctx, "artifact")
		}
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	sub := opts
	sub.Formats = missing
	rendered, err := Render(ctx, doc, sub)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		if format == FormatDocument {
			continue
		}
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			r.Logger.Warn("cache write failed", "type", "artifact", "error", err)
			continue
		}
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	return artifacts, false, nil
}

// Render calls [Runner.RenderWithCacheInfo] and drops the cache info.
func (r *Runner) Render(ctx context.Context, doc *document.Document, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, doc, opts)
	return artifacts, err
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// get decodes a cached JSON value. Undecodable entries count as misses.
func (r *Runner) get(ctx context.Context, keyType, key string, v any) bool {
	data, ok, err := r.Cache.Get(ctx, key)
	if err == nil && ok && json.Unmarshal(data, v) == nil {
		observability.Cache().OnCacheHit(ctx, keyType)
		return true
	}
	if err != nil {
		r.Logger.Warn("cache read failed", "type", keyType, "error", err)
	}
	observability.Cache().OnCacheMiss(ctx, keyType)
	return false
}

// set stores v as JSON. Cache failures are logged and otherwise ignored.
func (r *Runner) set(ctx context.Context, keyType, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err == nil {
		err = r.Cache.Set(ctx, key, data, ttl)
	}
	if err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
