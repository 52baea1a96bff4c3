// Package document is the serialized form of an engraved score.
//
// A [Document] carries everything needed to reproduce a rendering: the
// source it came from, the parsed [score.Score], the [staff.Renderer]
// geometry, the computed [staff.Staff] layout, and diagnostics for events
// that could not be laid out. The CLI writes documents with
// "engrave layout" and reads them back with "engrave render" and
// "engrave visualize"; the storage backends persist them.
//
// # Formats
//
// Documents encode as indented JSON or as BSON. The file helpers pick the
// format from the extension: ".bson" is BSON, anything else JSON.
//
// The staff layout is omitted from BSON. Stored documents keep the score
// and renderer and are laid out again with [Document.Relayout] after
// loading, so a stored record stays small and never goes stale when the
// layout code changes.
//
// # Usage
//
//	doc := document.New(sc, document.Source{Format: "text", Filename: "tune.ly"})
//	if err := doc.Relayout(staff.DefaultRenderer(), nil, staff.UsePlaceholder(r)); err != nil {
//	    return err
//	}
//	if err := document.WriteFile(doc, "tune.json"); err != nil {
//	    return err
//	}
//
// [score.Score]: github.com/matzehuels/engrave/pkg/core/score.Score
// [staff.Renderer]: github.com/matzehuels/engrave/pkg/core/render/staff.Renderer
// [staff.Staff]: github.com/matzehuels/engrave/pkg/core/render/staff.Staff
package document
