// Package storage provides abstractions for persistent document storage.
//
// Documents are JSON bodies addressed by slash-separated paths that alternate
// collection and document ID, e.g. "elections/e1/voters/v1". The parent
// collection of that document is "elections/e1/voters".
package storage

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when a transaction could not commit because a
	// document it read was changed concurrently and retries were exhausted.
	ErrConflict = errors.New("transaction conflict")

	// ErrReadAfterWrite is returned when a transaction reads a document after
	// it has already buffered a write. All reads must come first.
	ErrReadAfterWrite = errors.New("transaction reads must precede writes")

	// ErrInvalidPath is returned for a path that does not name a document.
	ErrInvalidPath = errors.New("invalid document path")
)

// IsNotFound reports whether err means a document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// DefaultMaxAttempts is how many times a transaction function runs before
// a conflict is reported to the caller.
const DefaultMaxAttempts = 5

// MaxBatchSize is the largest batch callers should hand to BatchWrite.
const MaxBatchSize = 400

// Doc is a stored document.
type Doc struct {
	Path string
	Data []byte
}

// ID returns the last segment of the document path.
func (d Doc) ID() string {
	return DocID(d.Path)
}

// Decode unmarshals the document body into v.
func (d Doc) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Write is one mutation in a batch.
type Write struct {
	Path   string
	Data   []byte
	Delete bool
}

// SetWrite encodes v as a full replacement of the document at path.
func SetWrite(path string, v any) (Write, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Write{}, err
	}
	return Write{Path: path, Data: data}, nil
}

// DeleteWrite removes the document at path.
func DeleteWrite(path string) Write {
	return Write{Path: path, Delete: true}
}

// Txn is the view of the store inside a transaction function.
//
// Documents read through Get take part in conflict detection: if any of them
// changes before the transaction commits, the whole function is run again.
// Set and Delete are buffered and applied atomically on commit.
type Txn interface {
	// Get reads a document. Returns ErrNotFound if it does not exist.
	// Returns ErrReadAfterWrite once Set or Delete has been called.
	Get(ctx context.Context, path string) (Doc, error)

	// Set replaces the document at path with v encoded as JSON.
	Set(path string, v any) error

	// Delete removes the document at path. Deleting a missing document is not an error.
	Delete(path string)
}

// TxnFunc is the body of a transaction. It may run more than once and must
// not have side effects outside the Txn.
type TxnFunc func(ctx context.Context, tx Txn) error

// Store defines the interface for document storage operations.
// This abstraction allows swapping storage backends (memory, SQLite, Cloud Datastore)
// without changing the engine or the service layer.
type Store interface {
	// Get retrieves the document at path.
	// Returns ErrNotFound if the document does not exist.
	Get(ctx context.Context, path string) (Doc, error)

	// Query returns the documents directly inside collection that match every
	// filter, ordered by document ID.
	Query(ctx context.Context, collection string, filters ...Filter) ([]Doc, error)

	// RunTransaction runs fn and commits its writes atomically, retrying on
	// conflict. An error returned by fn aborts the transaction and is returned
	// unchanged. Exhausted retries return an error wrapping ErrConflict.
	RunTransaction(ctx context.Context, fn TxnFunc) error

	// BatchWrite applies writes without conflict detection. Batches are meant for
	// bulk administrative changes; callers keep them at or below MaxBatchSize.
	BatchWrite(ctx context.Context, writes []Write) error

	// Close releases any resources held by the store.
	Close() error
}
