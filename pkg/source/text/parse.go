package text

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/matzehuels/engrave/pkg/core/pitch"
	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/errors"
)

// baseOctave is the octave of an unmarked note name: "c" is C3.
const baseOctave = 3

// Parse reads a score. Syntax errors are returned as
// [*errors.PositionError].
func Parse(src string) (*score.Score, error) {
	p := &parser{
		src:  []rune(src),
		line: 1,
		col:  1,
		doc:  &score.Score{Time: score.CommonTime},
		dur:  score.Duration{Kind: score.Quarter},
	}
	p.speller = pitch.NewSpeller(score.Treble, score.KeySignature{})
	if !hasBarlines(p.src) {
		p.counter = score.NewMeasureCounter(score.CommonTime)
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

// Read parses a score from r.
func Read(r io.Reader) (*score.Score, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read score")
	}
	return Parse(string(data))
}

// ParseFile parses the score at path.
func ParseFile(path string) (*score.Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	return Parse(string(data))
}

type parser struct {
	src       []rune
	pos       int
	line, col int

	doc     *score.Score
	speller *pitch.Speller
	dur     score.Duration // repeated when a note omits its duration

	current []score.Event
	counter *score.MeasureCounter // set when measures are implied by the time signature
	started bool                  // a timed event has been read
}

// hasBarlines reports whether src contains a barline outside comments and
// strings.
func hasBarlines(src []rune) bool {
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '|':
			return true
		case '%':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case '"':
			for i++; i < len(src) && src[i] != '"' && src[i] != '\n'; i++ {
				if src[i] == '\\' {
					i++
				}
			}
		}
	}
	return false
}

func (p *parser) errorf(line, col int, format string, args ...any) error {
	return &errors.PositionError{Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() rune {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(n int) rune {
	if p.pos+n >= len(p.src) {
		return 0
	}
	return p.src[p.pos+n]
}

func (p *parser) next() rune {
	r := p.peek()
	if r == 0 {
		return 0
	}
	p.pos++
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return r
}

func (p *parser) skipSpace() {
	for {
		r := p.peek()
		switch {
		case r == '%':
			for p.peek() != 0 && p.peek() != '\n' {
				p.next()
			}
		case r != 0 && unicode.IsSpace(r):
			p.next()
		default:
			return
		}
	}
}

func (p *parser) word() string {
	var b strings.Builder
	for r := p.peek(); r != 0 && !unicode.IsSpace(r) && r != '|' && r != '<' && r != '>'; r = p.peek() {
		b.WriteRune(p.next())
	}
	return b.String()
}

func (p *parser) parse() error {
	for {
		p.skipSpace()
		line, col := p.line, p.col
		switch r := p.peek(); {
		case r == 0:
			p.endMeasure()
			return nil
		case r == '|':
			p.next()
			p.endMeasure()
		case r == '\\':
			p.next()
			if err := p.command(line, col); err != nil {
				return err
			}
		case r == '<':
			p.next()
			if err := p.chord(line, col); err != nil {
				return err
			}
		case r == 'r':
			p.next()
			d, err := p.duration()
			if err != nil {
				return err
			}
			p.emit(score.Rest(d))
		default:
			pt, forced, err := p.pitch()
			if err != nil {
				return err
			}
			d, err := p.duration()
			if err != nil {
				return err
			}
			p.emit(score.Note(d, p.spell(pt, forced)))
		}
	}
}

// emit appends ev to the current measure. Without barlines in the source
// the measure ends once the time signature is filled, so accidentals are
// reset where the implied barline falls.
func (p *parser) emit(ev score.Event) {
	if ev.Timed() {
		p.started = true
	}
	p.current = append(p.current, ev)
	if p.counter != nil && p.counter.Add(ev) {
		p.endMeasure()
	}
}

func (p *parser) endMeasure() {
	if len(p.current) > 0 {
		p.doc.Measures = append(p.doc.Measures, p.current)
		p.current = nil
	}
	p.speller.Reset()
}

func (p *parser) spell(pt pitch.Pitch, forced bool) score.PitchedNote {
	n := p.speller.Spell(pt)
	if forced && n.Accidental == score.NoAccidental {
		n.Accidental, _ = score.FromSemitones(pt.Accidental.Semitones())
	}
	return n
}

func (p *parser) command(line, col int) error {
	name := p.word()
	p.skipSpace()
	argLine, argCol := p.line, p.col

	switch name {
	case "clef":
		c, err := score.ParseClef(p.word())
		if err != nil {
			return p.errorf(argLine, argCol, "%s", errors.UserMessage(err))
		}
		p.speller.SetClef(c)
		if !p.started && len(p.current) == 0 && len(p.doc.Measures) == 0 {
			p.doc.Clef = c
		}
		p.emit(score.ClefChange(c))
	case "key":
		k, err := score.ParseKeySignature(p.word())
		if err != nil {
			return p.errorf(argLine, argCol, "%s", errors.UserMessage(err))
		}
		p.speller.SetKey(k)
		if !p.started {
			p.doc.Key = k
		}
		p.emit(score.Key(k))
	case "time":
		t, err := parseTime(p.word())
		if err != nil {
			return p.errorf(argLine, argCol, "%v", err)
		}
		if p.counter != nil {
			p.counter.SetTime(t)
		}
		if !p.started {
			p.doc.Time = t
		}
	case "title":
		title, err := p.quoted()
		if err != nil {
			return err
		}
		p.doc.Title = title
	case "":
		return p.errorf(line, col, "expected command name after \\")
	default:
		return p.errorf(line, col, "unknown command \\%s", name)
	}
	return nil
}

func parseTime(s string) (score.Time, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return score.Time{}, fmt.Errorf("time signature %q is not beats/unit", s)
	}
	b, err1 := strconv.Atoi(num)
	u, err2 := strconv.Atoi(den)
	if err1 != nil || err2 != nil || b <= 0 || u <= 0 || u&(u-1) != 0 {
		return score.Time{}, fmt.Errorf("invalid time signature %q", s)
	}
	return score.Time{Beats: b, BeatUnit: u}, nil
}

func (p *parser) quoted() (string, error) {
	line, col := p.line, p.col
	if p.next() != '"' {
		return "", p.errorf(line, col, "expected quoted string")
	}
	var b strings.Builder
	for {
		switch r := p.next(); r {
		case 0, '\n':
			return "", p.errorf(line, col, "unterminated string")
		case '"':
			return b.String(), nil
		case '\\':
			b.WriteRune(p.next())
		default:
			b.WriteRune(r)
		}
	}
}

func (p *parser) chord(line, col int) error {
	var pitches []pitch.Pitch
	var forced []bool
	for {
		p.skipSpace()
		switch p.peek() {
		case 0:
			return p.errorf(line, col, "unterminated chord")
		case '>':
			p.next()
			d, err := p.duration()
			if err != nil {
				return err
			}
			notes := make([]score.PitchedNote, len(pitches))
			for i, pt := range pitches {
				notes[i] = p.spell(pt, forced[i])
			}
			p.emit(score.Chord(d, notes...))
			return nil
		}
		pt, f, err := p.pitch()
		if err != nil {
			return err
		}
		if p.peek() >= '0' && p.peek() <= '9' {
			return p.errorf(p.line, p.col, "chord notes take no duration; put it after '>'")
		}
		pitches = append(pitches, pt)
		forced = append(forced, f)
	}
}

// pitch reads <letter><accidental?><octave marks?><!?>.
func (p *parser) pitch() (pitch.Pitch, bool, error) {
	line, col := p.line, p.col
	r := p.peek()
	if r < 'a' || r > 'g' {
		return pitch.Pitch{}, false, p.errorf(line, col, "unexpected %q", r)
	}
	letter, _ := pitch.ParseLetter(p.next())
	pt := pitch.Pitch{Letter: letter, Octave: baseOctave}

	semis := 0
	switch {
	case p.accept("isis"):
		semis = 2
	case p.accept("is"):
		semis = 1
	case p.accept("eses"):
		semis = -2
	case p.accept("es"):
		semis = -1
	case (letter == pitch.E || letter == pitch.A) && p.accept("ses"):
		semis = -2
	case (letter == pitch.E || letter == pitch.A) && p.accept("s"):
		semis = -1
	}
	if semis != 0 {
		pt.Accidental, _ = score.FromSemitones(semis)
	}

	for {
		switch p.peek() {
		case '\'':
			p.next()
			pt.Octave++
			continue
		case ',':
			p.next()
			pt.Octave--
			continue
		}
		break
	}

	forced := false
	if p.peek() == '!' {
		p.next()
		forced = true
	}
	if r := p.peek(); unicode.IsLetter(r) {
		return pitch.Pitch{}, false, p.errorf(p.line, p.col, "unexpected %q after note name", r)
	}
	if m := pt.MIDI(); m < 0 || m > 127 {
		return pitch.Pitch{}, false, p.errorf(line, col, "pitch %s out of range", pt)
	}
	return pt, forced, nil
}

func (p *parser) accept(s string) bool {
	rs := []rune(s)
	for i, r := range rs {
		if p.peekAt(i) != r {
			return false
		}
	}
	for range rs {
		p.next()
	}
	return true
}

// duration reads an optional note value and dot. Without a value the
// previous duration is reused.
func (p *parser) duration() (score.Duration, error) {
	line, col := p.line, p.col
	var digits strings.Builder
	for r := p.peek(); r >= '0' && r <= '9'; r = p.peek() {
		digits.WriteRune(p.next())
	}
	if digits.Len() == 0 {
		if p.peek() == '.' {
			return score.Duration{}, p.errorf(p.line, p.col, "dot without a duration")
		}
		return p.dur, nil
	}
	k, err := score.ParseDurationKind(digits.String())
	if err != nil {
		return score.Duration{}, p.errorf(line, col, "unsupported duration %s", digits.String())
	}
	d := score.Duration{Kind: k}
	if p.peek() == '.' {
		p.next()
		d.Dotted = true
	}
	p.dur = d
	return d, nil
}
