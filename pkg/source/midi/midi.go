// Package midi imports Standard MIDI Files as scores.
//
// One track is read. Notes are snapped to a grid (sixteenths by default),
// notes starting on the same grid step become a chord, and silence becomes
// rests. Notated music has no ties here, so a note longer than the
// largest duration that fits before the next onset or barline is
// shortened and the remainder written as rests. Pitches are spelled with
// sharps, or with flats in flat keys.
package midi

import (
	"bytes"
	"io"
	"math"
	"os"
	"slices"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/matzehuels/engrave/pkg/core/pitch"
	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/errors"
)

// AutoTrack selects the first track that contains notes.
const AutoTrack = -1

// Options configures the import.
type Options struct {
	// Track is the track index to read, or AutoTrack.
	Track int

	// Grid is the shortest duration notes are snapped to. Zero means
	// sixteenths.
	Grid score.DurationKind

	// Clef overrides the clef. When nil, bass clef is used if most notes
	// lie below middle C.
	Clef *score.ClefKind

	// Key overrides the file's key signature.
	Key *score.KeySignature
}

// Read parses SMF data from r.
func Read(r io.Reader, opts Options) (*score.Score, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read midi")
	}
	return Parse(data, opts)
}

// ReadFile parses the SMF file at path.
func ReadFile(path string, opts Options) (*score.Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	return Parse(data, opts)
}

// Parse converts SMF data into a score.
func Parse(data []byte, opts Options) (*score.Score, error) {
	s, err := decode(data)
	if err != nil {
		return nil, err
	}
	tpq, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || tpq == 0 {
		return nil, errors.New(errors.ErrCodeUnsupported, "only metric time formats are supported")
	}

	meta := readMeta(s)
	track, err := pickTrack(s, opts.Track)
	if err != nil {
		return nil, err
	}
	notes := collectNotes(track)
	if len(notes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "selected track has no notes")
	}

	grid := opts.Grid
	if !grid.Valid() {
		grid = score.Sixteenth
	}
	sc := &score.Score{Title: meta.title, Time: meta.time, Key: meta.key}
	if opts.Key != nil {
		if err := opts.Key.Validate(); err != nil {
			return nil, err
		}
		sc.Key = *opts.Key
	}
	sc.Clef = pickClef(notes, opts.Clef)

	q := quantizer{
		ticksPerStep: float64(tpq) / 4 * float64(16/grid.Denominator()),
		stepUnits:    16 / grid.Denominator(),
	}
	sc.Measures = build(q.apply(notes), sc)
	return sc, nil
}

// decode wraps smf.ReadFrom, which panics on some malformed files.
func decode(data []byte) (s *smf.SMF, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, errors.New(errors.ErrCodeInvalidFormat, "parse midi: %v", r)
		}
	}()
	s, err = smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse midi")
	}
	return s, nil
}

// ============================================================================
// Meta events
// ============================================================================

type metaInfo struct {
	title string
	time  score.Time
	key   score.KeySignature
}

// readMeta takes the first time signature, key signature and track name
// found in any track.
func readMeta(s *smf.SMF) metaInfo {
	m := metaInfo{time: score.CommonTime}
	var haveTime, haveKey bool
	for _, tr := range s.Tracks {
		for _, ev := range tr {
			typ, data, ok := metaPayload(ev.Message)
			if !ok {
				continue
			}
			switch {
			case typ == 0x03 && m.title == "":
				m.title = string(data)
			case typ == 0x58 && !haveTime && len(data) >= 2:
				if data[1] < 6 {
					m.time = score.Time{Beats: int(data[0]), BeatUnit: 1 << data[1]}
					haveTime = m.time.Beats > 0
				}
			case typ == 0x59 && !haveKey && len(data) >= 1:
				k := score.KeyFromFifths(int(int8(data[0])))
				if k.Validate() == nil {
					m.key, haveKey = k, true
				}
			}
		}
	}
	return m
}

// metaPayload splits a raw meta message (FF type length data).
func metaPayload(msg smf.Message) (typ byte, data []byte, ok bool) {
	b := []byte(msg)
	if len(b) < 3 || b[0] != 0xFF {
		return 0, nil, false
	}
	typ = b[1]
	n, i := 0, 2
	for ; i < len(b); i++ {
		n = n<<7 | int(b[i]&0x7F)
		if b[i]&0x80 == 0 {
			i++
			break
		}
	}
	if i+n > len(b) {
		return 0, nil, false
	}
	return typ, b[i : i+n], true
}

// ============================================================================
// Notes
// ============================================================================

type midiNote struct {
	key        int
	start, end int64 // ticks
}

func pickTrack(s *smf.SMF, idx int) (smf.Track, error) {
	if idx >= 0 {
		if idx >= len(s.Tracks) {
			return nil, errors.New(errors.ErrCodeNotFound, "track %d not found, file has %d", idx, len(s.Tracks))
		}
		return s.Tracks[idx], nil
	}
	for _, tr := range s.Tracks {
		for _, ev := range tr {
			var ch, key, vel uint8
			if ev.Message.GetNoteOn(&ch, &key, &vel) && vel > 0 {
				return tr, nil
			}
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "no track contains notes")
}

// collectNotes pairs note-on and note-off events per key, first in first
// out. Notes still sounding at the end of the track end there.
func collectNotes(tr smf.Track) []midiNote {
	var (
		abs   int64
		notes []midiNote
	)
	open := make(map[uint8][]int)
	for _, ev := range tr {
		abs += int64(ev.Delta)
		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteOn(&ch, &key, &vel) && vel > 0:
			open[key] = append(open[key], len(notes))
			notes = append(notes, midiNote{key: int(key), start: abs, end: -1})
		case ev.Message.GetNoteOn(&ch, &key, &vel), ev.Message.GetNoteOff(&ch, &key, &vel):
			if q := open[key]; len(q) > 0 {
				notes[q[0]].end = abs
				open[key] = q[1:]
			}
		}
	}
	for i := range notes {
		if notes[i].end < 0 {
			notes[i].end = abs
		}
	}
	return notes
}

func pickClef(notes []midiNote, override *score.ClefKind) score.ClefKind {
	if override != nil {
		return *override
	}
	low := 0
	for _, n := range notes {
		if n.key < 60 {
			low++
		}
	}
	if 2*low > len(notes) {
		return score.Bass
	}
	return score.Treble
}

// ============================================================================
// Quantization
// ============================================================================

type quantizer struct {
	ticksPerStep float64
	stepUnits    int // sixteenths per grid step
}

// onset is a chord of keys starting at one grid position, in sixteenths.
type onset struct {
	at, length int
	keys       []int
}

func (q quantizer) snap(ticks int64) int {
	return int(math.Round(float64(ticks)/q.ticksPerStep)) * q.stepUnits
}

// apply groups notes by snapped start and gives each group the shortest
// snapped length among its notes, at least one grid step.
func (q quantizer) apply(notes []midiNote) []onset {
	byStart := make(map[int]*onset)
	for _, n := range notes {
		at := q.snap(n.start)
		length := max(q.snap(n.end)-at, q.stepUnits)
		o, ok := byStart[at]
		if !ok {
			o = &onset{at: at, length: length}
			byStart[at] = o
		}
		o.length = min(o.length, length)
		if !slices.Contains(o.keys, n.key) {
			o.keys = append(o.keys, n.key)
		}
	}
	out := make([]onset, 0, len(byStart))
	for _, o := range byStart {
		slices.Sort(o.keys)
		out = append(out, *o)
	}
	slices.SortFunc(out, func(a, b onset) int { return a.at - b.at })
	return out
}

// ============================================================================
// Measures
// ============================================================================

// pieces lists the representable durations in sixteenths, longest first.
var pieces = []struct {
	units int
	dur   score.Duration
}{
	{16, score.Duration{Kind: score.Whole}},
	{12, score.Duration{Kind: score.Half, Dotted: true}},
	{8, score.Duration{Kind: score.Half}},
	{6, score.Duration{Kind: score.Quarter, Dotted: true}},
	{4, score.Duration{Kind: score.Quarter}},
	{3, score.Duration{Kind: score.Eighth, Dotted: true}},
	{2, score.Duration{Kind: score.Eighth}},
	{1, score.Duration{Kind: score.Sixteenth}},
}

// largest returns the longest duration of at most units sixteenths.
func largest(units int) (int, score.Duration) {
	for _, p := range pieces {
		if p.units <= units {
			return p.units, p.dur
		}
	}
	return 0, score.Duration{}
}

type measureWriter struct {
	sc       *score.Score
	speller  *pitch.Speller
	measure  int // measure length in sixteenths
	pos      int // absolute position in sixteenths
	current  []score.Event
	measures [][]score.Event
}

func (w *measureWriter) room() int { return w.measure - w.pos%w.measure }

func (w *measureWriter) push(ev score.Event, units int) {
	w.current = append(w.current, ev)
	w.pos += units
	if w.pos%w.measure == 0 {
		w.measures = append(w.measures, w.current)
		w.current = nil
		w.speller.Reset()
	}
}

// rest fills units sixteenths with rests, split at barlines.
func (w *measureWriter) rest(units int) {
	for units > 0 {
		u, d := largest(min(units, w.room()))
		w.push(score.Rest(d), u)
		units -= u
	}
}

func (w *measureWriter) note(keys []int, units int) {
	u, d := largest(min(units, w.room()))
	ps := make([]pitch.Pitch, len(keys))
	for i, k := range keys {
		// keys come from 7-bit MIDI data and are always in range
		ps[i], _ = pitch.FromMIDI(k, w.sc.Key)
	}
	notes := make([]score.PitchedNote, len(ps))
	for i, p := range ps {
		notes[i] = w.speller.Spell(p)
	}
	if len(notes) == 1 {
		w.push(score.Note(d, notes[0]), u)
	} else {
		w.push(score.Chord(d, notes...), u)
	}
	w.rest(units - u)
}

func build(onsets []onset, sc *score.Score) [][]score.Event {
	measure := int(math.Round(sc.Time.Quarters() * 4))
	if measure <= 0 {
		measure = 16
	}
	w := &measureWriter{
		sc:      sc,
		speller: pitch.NewSpeller(sc.Clef, sc.Key),
		measure: measure,
	}

	w.current = append(w.current, score.ClefChange(sc.Clef))
	if sc.Key.Count > 0 {
		w.current = append(w.current, score.Key(sc.Key))
	}

	for i, o := range onsets {
		if o.at > w.pos {
			w.rest(o.at - w.pos)
		}
		length := o.length
		if i+1 < len(onsets) {
			length = min(length, onsets[i+1].at-o.at)
		}
		w.note(o.keys, length)
	}
	if len(w.current) > 0 {
		w.measures = append(w.measures, w.current)
	}
	return w.measures
}

