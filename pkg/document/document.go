package document

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/engrave/pkg/core/glyph"
	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/errors"
)

// Source formats.
const (
	FormatText = "text"
	FormatMIDI = "midi"
)

// =============================================================================
// Types
// =============================================================================

// Document is a score together with its layout.
type Document struct {
	ID          string         `json:"id" bson:"_id"`
	Title       string         `json:"title,omitempty" bson:"title,omitempty"`
	Source      Source         `json:"source" bson:"source"`
	Score       *score.Score   `json:"score" bson:"score"`
	Renderer    staff.Renderer `json:"renderer" bson:"renderer"`
	Staff       *staff.Staff   `json:"staff,omitempty" bson:"-"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty" bson:"diagnostics,omitempty"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}

// Source records where a score came from.
type Source struct {
	Format   string `json:"format" bson:"format"`
	Filename string `json:"filename,omitempty" bson:"filename,omitempty"`
	Hash     string `json:"hash,omitempty" bson:"hash,omitempty"`

	// Text is the original text for text sources. MIDI sources are not
	// kept.
	Text string `json:"text,omitempty" bson:"text,omitempty"`
}

// Diagnostic describes an event that failed to lay out.
type Diagnostic struct {
	Measure int         `json:"measure" bson:"measure"`
	Item    int         `json:"item" bson:"item"`
	Event   string      `json:"event" bson:"event"`
	Code    errors.Code `json:"code" bson:"code"`
	Message string      `json:"message" bson:"message"`
}

// New wraps a parsed score in a document with a fresh id. The title is
// taken from the score.
func New(sc *score.Score, src Source) *Document {
	now := time.Now().UTC()
	d := &Document{
		ID:        uuid.NewString(),
		Source:    src,
		Score:     sc,
		Renderer:  staff.DefaultRenderer(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sc != nil {
		d.Title = sc.Title
	}
	return d
}

// Relayout lays out the score with r, replacing the staff and
// diagnostics. gm and sub are passed to [staff.Build].
func (d *Document) Relayout(r staff.Renderer, gm glyph.Metrics, sub staff.Substitute) error {
	if d.Score == nil {
		return errors.New(errors.ErrCodeInvalidInput, "document has no score")
	}
	s, failed, err := staff.Build(d.Score.Measures, r, gm, sub)
	if err != nil {
		return err
	}
	d.Renderer = r
	d.Staff = s
	d.Diagnostics = Diagnostics(failed)
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// Diagnostics converts layout failures.
func Diagnostics(failed []*staff.ItemError) []Diagnostic {
	if len(failed) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(failed))
	for i, f := range failed {
		out[i] = Diagnostic{
			Measure: f.Measure,
			Item:    f.Item,
			Event:   f.Event.String(),
			Code:    errors.GetCode(f.Err),
			Message: errors.UserMessage(f.Err),
		}
	}
	return out
}

// Validate checks the fields every stored document must have.
func (d *Document) Validate() error {
	if err := errors.ValidateScoreID(d.ID); err != nil {
		return err
	}
	if err := errors.ValidateTitle(d.Title); err != nil {
		return err
	}
	if d.Score == nil {
		return errors.New(errors.ErrCodeInvalidInput, "document has no score")
	}
	return d.Renderer.Validate()
}

// =============================================================================
// Serialization
// =============================================================================

// Marshal encodes d as indented JSON.
func Marshal(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a JSON document.
func Unmarshal(data []byte) (*Document, error) {
	return Read(bytes.NewReader(data))
}

// Write encodes d as indented JSON to w.
func Write(d *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode document")
	}
	return nil
}

// Read decodes a JSON document from r.
func Read(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode document")
	}
	return &d, nil
}

// MarshalBSON encodes d as BSON, without the staff layout.
func MarshalBSON(d *Document) ([]byte, error) {
	data, err := bson.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode document")
	}
	return data, nil
}

// UnmarshalBSON decodes a BSON document. The staff is nil until
// [Document.Relayout] is called.
func UnmarshalBSON(data []byte) (*Document, error) {
	var d Document
	if err := bson.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode document")
	}
	return &d, nil
}

// WriteFile writes d to path, as BSON for ".bson" files and JSON otherwise.
func WriteFile(d *Document, path string) error {
	var (
		data []byte
		err  error
	)
	if isBSON(path) {
		data, err = MarshalBSON(d)
	} else {
		data, err = Marshal(d)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

// ReadFile reads a document written by [WriteFile].
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	if isBSON(path) {
		return UnmarshalBSON(data)
	}
	return Unmarshal(data)
}

func isBSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".bson")
}
