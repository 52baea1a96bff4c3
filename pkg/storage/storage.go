// Package storage persists score documents.
//
// Three backends implement [Store]:
//   - [MemoryStore]: a map, for tests and a single server process
//   - [FileStore]: one BSON file per document in a directory
//   - [MongoStore]: a MongoDB collection, for shared deployments
//
// All backends store the BSON form of a [document.Document], so documents
// come back without their staff layout; call [document.Document.Relayout]
// before rendering. Ids are UUIDs assigned by [document.New].
package storage

import (
	"context"
	"time"

	"github.com/matzehuels/engrave/pkg/document"
)

// Store is a document repository.
type Store interface {
	// Get returns the document with id, or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*document.Document, error)

	// Put inserts or replaces a document.
	Put(ctx context.Context, d *document.Document) error

	// Delete removes a document, or returns a NOT_FOUND error.
	Delete(ctx context.Context, id string) error

	// List returns summaries of up to limit documents, most recently
	// updated first. A limit of zero or less returns all of them.
	List(ctx context.Context, limit int) ([]Summary, error)

	// Close releases the backend.
	Close() error
}

// Summary is the listing form of a document.
type Summary struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title,omitempty" bson:"title,omitempty"`
	Format    string    `json:"format" bson:"format"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Summarize builds the summary of d.
func Summarize(d *document.Document) Summary {
	return Summary{ID: d.ID, Title: d.Title, Format: d.Source.Format, UpdatedAt: d.UpdatedAt}
}
