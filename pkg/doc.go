// Package pkg provides the core libraries for engrave, a music notation
// layout engine.
//
// # Overview
//
// Engrave lays out notes, chords, rests, clefs and key signatures on a
// single five-line staff that wraps into rows. The pkg directory is
// organized into these areas:
//
//  1. [core] - Domain logic (scores, pitches, glyph metrics, staff layout, sinks)
//  2. [source] - Score readers (text notation, MIDI)
//  3. [pipeline] - Orchestration (parse → layout → render) with caching
//  4. [document] - Serializable layout documents
//  5. [cache], [storage], [config] - Infrastructure
//
// # Architecture
//
// The typical data flow through engrave:
//
//	Text notation / MIDI file
//	         ↓
//	    [source/text], [source/midi] (parse into a score)
//	         ↓
//	    [core/render/staff] (items → measures → rows)
//	         ↓
//	    [core/render/sink] (SVG/PNG/PDF/JSON output)
//
// # Quick Start
//
// Lay out and render a score:
//
//	import (
//	    "github.com/matzehuels/engrave/pkg/core/render/sink"
//	    "github.com/matzehuels/engrave/pkg/core/render/staff"
//	    "github.com/matzehuels/engrave/pkg/source/text"
//	)
//
//	sc, err := text.Parse(`c'4 d' e' f' | <c' e' g'>1`)
//	if err != nil {
//	    return err
//	}
//	s, failed, err := staff.Build(sc.Measures, staff.DefaultRenderer(), nil, staff.Skip)
//	if err != nil {
//	    return err
//	}
//	svg, err := sink.RenderSVG(s, sink.WithTitle(sc.Title))
//
// Events that cannot be laid out (an empty chord, an unsupported duration)
// are reported in failed and skipped, or drawn as placeholders with
// [staff.UsePlaceholder].
//
// Or run the whole pipeline with caching:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  src,
//	    Formats: []string{"svg", "png"},
//	})
package pkg
