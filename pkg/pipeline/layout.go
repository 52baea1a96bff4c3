package pipeline

import (
	"context"

	"github.com/matzehuels/engrave/pkg/core/glyph"
	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/errors"
)

// Layout is a laid-out staff with the events that failed.
type Layout struct {
	Staff       *staff.Staff          `json:"staff"`
	Diagnostics []document.Diagnostic `json:"diagnostics,omitempty"`
}

// GenerateLayout lays out sc with opts.Renderer.
//
// Failed events are handled by opts.Policy: skipped, replaced with a
// placeholder, or reported as an error naming the first failure.
func GenerateLayout(ctx context.Context, sc *score.Score, opts Options) (Layout, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return Layout{}, err
	}
	if err := ctx.Err(); err != nil {
		return Layout{}, err
	}
	if sc == nil {
		return Layout{}, errors.New(errors.ErrCodeInvalidInput, "no score to lay out")
	}

	s, failed, err := staff.Build(sc.Measures, opts.Renderer, opts.Metrics(), Substitute(opts.Policy, opts.Renderer))
	if err != nil {
		return Layout{}, err
	}
	if opts.Policy == PolicyFail && len(failed) > 0 {
		f := failed[0]
		return Layout{}, errors.Wrap(errors.GetCode(f.Err), f.Err,
			"measure %d, event %d (%s)", f.Measure+1, f.Item+1, f.Event)
	}
	for _, f := range failed {
		opts.Logger.Warn("event not laid out", "measure", f.Measure+1, "event", f.Item+1, "error", errors.UserMessage(f.Err))
	}

	opts.Logger.Debug("laid out staff", "rows", len(s.Rows), "measures", s.Measures(), "failed", len(failed))
	return Layout{Staff: s, Diagnostics: document.Diagnostics(failed)}, nil
}

// Substitute returns the staff substitution for a policy.
func Substitute(policy string, r staff.Renderer) staff.Substitute {
	if policy == PolicyPlaceholder {
		return staff.UsePlaceholder(r)
	}
	return staff.Skip
}

// Metrics returns the font's glyph metrics, or nil for the built-in
// Bravura metrics.
func (o *Options) Metrics() glyph.Metrics {
	if o.Font == nil {
		return nil
	}
	return o.Font
}

// Outliner returns the font's outlines, or [glyph.Fallback].
func (o *Options) Outliner() glyph.Outliner {
	if o.Font == nil {
		return glyph.Fallback()
	}
	return o.Font
}
