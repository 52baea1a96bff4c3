// Package score defines the abstract musical events consumed by the layout
// engine.
//
// An [Event] is one of:
//
//   - a rest with a [Duration]
//   - a single [PitchedNote] with a [Duration]
//   - a chord: a non-empty set of pitched notes sharing one duration
//   - a clef change ([ClefKind])
//   - a key signature ([KeySignature])
//
// Notes carry a staff index rather than a pitch: index 0 is the bottom line
// of the five-line staff and each unit is one diatonic step. Converting
// letters and octaves into staff indices is the job of pkg/core/pitch.
//
// All types are immutable values. Events are authored once (by a parser, an
// importer or by hand) and borrowed by the layout engine, which never
// modifies them.
//
// # Measures
//
// Authored text carries explicit barlines. Imported material does not, so
// [SplitMeasures] chops a flat event stream into measures by accumulated
// length.
package score
