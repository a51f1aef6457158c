// Package store persists computed layouts so they can be fetched again by
// id.
//
// Three backends implement [Store]:
//   - memory: in-process storage for development and tests
//   - file: one JSON file per layout, for single-instance deployments
//   - mongo: a MongoDB collection for multi-instance deployments
//
// # Usage
//
//	st := store.NewMemoryStore()
//	rec, err := store.NewRecord(graphHash, layoutJSON)
//	if err != nil {
//	    return err
//	}
//	if err := st.Put(ctx, rec); err != nil {
//	    return err
//	}
//	got, err := st.Get(ctx, rec.ID)
//	if errors.Is(err, store.ErrNotFound) {
//	    // unknown id
//	}
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
)

// ErrNotFound is returned when no layout has the requested id.
var ErrNotFound = errors.New("layout not found")

// Record is one stored layout.
type Record struct {
	ID        string          `json:"id"`
	GraphHash string          `json:"graph_hash"`
	Layout    json.RawMessage `json:"layout"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewRecord returns a record with a fresh random id.
func NewRecord(graphHash string, layoutJSON []byte) (*Record, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternal, err, "generate layout id")
	}
	return &Record{
		ID:        id.String(),
		GraphHash: graphHash,
		Layout:    json.RawMessage(layoutJSON),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Store is the interface for layout storage backends.
type Store interface {
	// Put stores a record, replacing any record with the same id.
	Put(ctx context.Context, rec *Record) error

	// Get retrieves a record by id. A missing id yields an error wrapping
	// ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Delete removes a record. A missing id yields an error wrapping
	// ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns up to limit records, newest first. A limit of zero or
	// less returns every record.
	List(ctx context.Context, limit int) ([]*Record, error)

	// Close releases the backend's resources.
	Close() error
}

// ValidateID reports whether id has the shape of a layout id.
func ValidateID(id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidInput, err, "invalid layout id %q", id)
	}
	return nil
}

func notFound(id string) error {
	return apperr.Wrap(apperr.ErrCodeNotFound, ErrNotFound, "no layout with id %q", id)
}
