// Package text parses a small LilyPond-like notation into score events.
//
// # Syntax
//
// Notes are written as a lowercase letter with optional suffixes:
//
//	c d e f g a b      note names; "c" is the C below middle C
//	cis ces cisis ceses sharps and flats ("es" and "as" also work)
//	c' c''  c,         octave up or down per mark
//	c4 c8. c16         duration: 1 2 4 8 16, optional dot
//	c!                 always print the accidental, a natural if none
//	r4                 rest
//	<c e g>2           chord; the duration follows the closing bracket
//	|                  barline
//
// A note without a duration repeats the previous one; the first defaults
// to a quarter. Pitches are absolute and the key signature does not alter
// them: in D major "f" is an F natural and prints a natural sign.
//
// Commands start with a backslash:
//
//	\clef treble|bass|alto
//	\key 2#  \key 3b  \key 0
//	\time 3/4
//	\title "Menuet"
//
// Everything after % on a line is a comment.
//
// When the source contains no barlines, events are grouped into measures
// by the time signature (4/4 unless \time says otherwise).
//
// # Errors
//
// Syntax errors are [*errors.PositionError] values carrying the line and
// column of the offending token.
package text
