package pipeline

import (
	"context"

	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/source/midi"
	"github.com/matzehuels/engrave/pkg/source/text"
)

// Parse reads opts.Source into a score.
//
// Text sources are parsed as notation; syntax errors carry their line and
// column. MIDI sources are imported with the track, grid, clef and key
// options.
func Parse(ctx context.Context, opts Options) (*score.Score, error) {
	if err := opts.ValidateForParse(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts.Logger.Debug("parsing score", "format", opts.SourceFormat, "bytes", len(opts.Source))

	switch opts.SourceFormat {
	case SourceMIDI:
		mo, err := opts.MIDIOptions()
		if err != nil {
			return nil, err
		}
		return midi.Parse(opts.Source, mo)
	default:
		return text.Parse(string(opts.Source))
	}
}

// MIDIOptions converts the string import options.
func (o *Options) MIDIOptions() (midi.Options, error) {
	mo := midi.Options{Track: midi.AutoTrack}
	if o.Track > 0 {
		mo.Track = o.Track - 1
	}
	if o.Grid != "" {
		g, err := score.ParseDurationKind(o.Grid)
		if err != nil {
			return midi.Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "grid")
		}
		mo.Grid = g
	}
	if o.Clef != "" {
		c, err := score.ParseClef(o.Clef)
		if err != nil {
			return midi.Options{}, err
		}
		mo.Clef = &c
	}
	if o.Key != "" {
		k, err := score.ParseKeySignature(o.Key)
		if err != nil {
			return midi.Options{}, err
		}
		mo.Key = &k
	}
	return mo, nil
}
