// Package docstore is the document database the records are persisted to.
//
// Documents live in slash-separated collections, carry a store-assigned id and
// creation time, and hold a JSON object body. Every backend keeps documents as
// encoded JSON so callers always get detached copies back.
package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/canari/internal/model"
)

// Fields is a document body: a JSON object decoded with json.Number for numbers
type Fields map[string]any

// Document is a stored document
type Document struct {
	ID        string
	CreatedAt time.Time
	Fields    Fields
}

// Store is implemented by every backend
type Store interface {
	// Get returns one document; a missing document yields model.ErrNotFound
	Get(ctx context.Context, collection, id string) (Document, error)

	// Create stores a new document and returns its id
	Create(ctx context.Context, collection string, fields Fields) (string, error)

	// CreateMany stores several documents in one write. On error the returned
	// ids are the documents that were stored before the failure, in order.
	CreateMany(ctx context.Context, collection string, docs []Fields) ([]string, error)

	// Update merges patch into the top-level keys of an existing document
	Update(ctx context.Context, collection, id string, patch Fields) error

	// List returns every document of a collection in creation order
	List(ctx context.Context, collection string) ([]Document, error)

	Close() error
}

// Open creates the backend selected by cfg.Driver
func Open(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	case "mysql":
		return NewSQLStore(cfg.MySQL)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", model.ErrInvalidConfiguration, cfg.Driver)
	}
}

func notFound(collection, id string) error {
	return fmt.Errorf("document %s/%s: %w", collection, id, model.ErrNotFound)
}
