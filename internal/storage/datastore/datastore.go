// Package datastore provides a Google Cloud Datastore implementation of the storage.Store interface.
//
// Every document is one entity of kind "Document" keyed by its full path.
// The JSON body is kept verbatim in an unindexed property, and its scalar
// fields are also flattened into indexed properties ("participated.elder_1")
// so query filters run server-side.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"

	"github.com/mmynk/officevote/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

const (
	kind = "Document"

	propCollection = "_collection"
	propData       = "_data"

	// Datastore rejects more than 500 mutations per commit.
	maxMutations = 500

	// Indexed string properties are limited to 1500 bytes.
	maxIndexedString = 1500
)

// Store implements storage.Store on Cloud Datastore.
type Store struct {
	client      *datastore.Client
	namespace   string
	maxAttempts int
}

// Option configures a Store.
type Option func(*Store)

// WithNamespace isolates all documents in a Datastore namespace.
func WithNamespace(ns string) Option {
	return func(s *Store) { s.namespace = ns }
}

// WithMaxAttempts sets how many times a transaction is attempted.
func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

// New connects to Datastore in projectID. When DATASTORE_EMULATOR_HOST is set
// the client talks to the emulator instead.
func New(ctx context.Context, projectID string, clientOpts []option.ClientOption, opts ...Option) (*Store, error) {
	client, err := datastore.NewClient(ctx, projectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}
	s := &Store{client: client, maxAttempts: storage.DefaultMaxAttempts}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(path string) *datastore.Key {
	k := datastore.NameKey(kind, path, nil)
	k.Namespace = s.namespace
	return k
}

// Get retrieves the document at path.
func (s *Store) Get(ctx context.Context, path string) (storage.Doc, error) {
	if err := storage.ValidatePath(path); err != nil {
		return storage.Doc{}, err
	}
	var e entity
	if err := s.client.Get(ctx, s.key(path), &e); err != nil {
		return storage.Doc{}, mapError(path, err)
	}
	return storage.Doc{Path: path, Data: e.data}, nil
}

// Query returns matching documents in collection ordered by document ID.
func (s *Store) Query(ctx context.Context, collection string, filters ...storage.Filter) ([]storage.Doc, error) {
	q := datastore.NewQuery(kind).Namespace(s.namespace).FilterField(propCollection, "=", collection)
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		v, _ := storage.Normalize(f.Value)
		q = q.FilterField(f.Field, datastoreOp(f.Op), v)
	}

	var entities []entity
	keys, err := s.client.GetAll(ctx, q, &entities)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	docs := make([]storage.Doc, len(keys))
	for i, k := range keys {
		docs[i] = storage.Doc{Path: k.Name, Data: entities[i].data}
	}
	// Ordering by __key__ alongside inequality filters needs composite
	// indexes, so sort here instead.
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// BatchWrite splits writes into chunks Datastore accepts in one call.
func (s *Store) BatchWrite(ctx context.Context, writes []storage.Write) error {
	var (
		putKeys []*datastore.Key
		puts    []*entity
		delKeys []*datastore.Key
	)
	for _, w := range writes {
		if err := storage.ValidatePath(w.Path); err != nil {
			return err
		}
		if w.Delete {
			delKeys = append(delKeys, s.key(w.Path))
			continue
		}
		e, err := newEntity(w.Path, w.Data)
		if err != nil {
			return err
		}
		putKeys = append(putKeys, s.key(w.Path))
		puts = append(puts, e)
	}

	for start := 0; start < len(putKeys); start += maxMutations {
		end := min(start+maxMutations, len(putKeys))
		if _, err := s.client.PutMulti(ctx, putKeys[start:end], puts[start:end]); err != nil {
			return fmt.Errorf("failed to put documents: %w", err)
		}
	}
	for start := 0; start < len(delKeys); start += maxMutations {
		end := min(start+maxMutations, len(delKeys))
		if err := s.client.DeleteMulti(ctx, delKeys[start:end]); err != nil {
			return fmt.Errorf("failed to delete documents: %w", err)
		}
	}
	return nil
}

// RunTransaction delegates to Datastore transactions, which already retry on
// contention. Each attempt gets a fresh Txn view.
func (s *Store) RunTransaction(ctx context.Context, fn storage.TxnFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.RunInTransaction(ctx, func(dtx *datastore.Transaction) error {
		return fn(ctx, &txn{store: s, tx: dtx})
	}, datastore.MaxAttempts(s.maxAttempts))
	if errors.Is(err, datastore.ErrConcurrentTransaction) {
		return fmt.Errorf("gave up after %d attempts: %w", s.maxAttempts, storage.ErrConflict)
	}
	return err
}

type txn struct {
	store   *Store
	tx      *datastore.Transaction
	written bool
}

func (t *txn) Get(ctx context.Context, path string) (storage.Doc, error) {
	if t.written {
		return storage.Doc{}, storage.ErrReadAfterWrite
	}
	if err := storage.ValidatePath(path); err != nil {
		return storage.Doc{}, err
	}
	var e entity
	if err := t.tx.Get(t.store.key(path), &e); err != nil {
		return storage.Doc{}, mapError(path, err)
	}
	return storage.Doc{Path: path, Data: e.data}, nil
}

func (t *txn) Set(path string, v any) error {
	if err := storage.ValidatePath(path); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	e, err := newEntity(path, data)
	if err != nil {
		return err
	}
	t.written = true
	_, err = t.tx.Put(t.store.key(path), e)
	return err
}

func (t *txn) Delete(path string) {
	t.written = true
	// Errors surface on commit.
	_ = t.tx.Delete(t.store.key(path))
}

func mapError(path string, err error) error {
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", path, err)
}

func datastoreOp(op storage.Op) string {
	if op == storage.Eq {
		return "="
	}
	return string(op)
}

// entity adapts a JSON document to Datastore properties.
type entity struct {
	collection string
	data       []byte
	fields     []datastore.Property
}

var _ datastore.PropertyLoadSaver = (*entity)(nil)

func newEntity(path string, data []byte) (*entity, error) {
	var body map[string]any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	e := &entity{collection: storage.Collection(path), data: data}
	flatten("", body, &e.fields)
	return e, nil
}

// flatten turns nested JSON objects into dotted scalar properties.
// Arrays and nulls are not indexed.
func flatten(prefix string, body map[string]any, out *[]datastore.Property) {
	for k, v := range body {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flatten(name, m, out)
			continue
		}
		n, ok := storage.Normalize(v)
		if !ok {
			continue
		}
		p := datastore.Property{Name: name, Value: n}
		if s, ok := n.(string); ok && len(s) > maxIndexedString {
			p.NoIndex = true
		}
		*out = append(*out, p)
	}
}

func (e *entity) Save() ([]datastore.Property, error) {
	props := []datastore.Property{
		{Name: propCollection, Value: e.collection},
		{Name: propData, Value: string(e.data), NoIndex: true},
	}
	return append(props, e.fields...), nil
}

func (e *entity) Load(props []datastore.Property) error {
	for _, p := range props {
		switch p.Name {
		case propCollection:
			e.collection, _ = p.Value.(string)
		case propData:
			s, ok := p.Value.(string)
			if !ok {
				return fmt.Errorf("datastore: %s has type %T", propData, p.Value)
			}
			e.data = []byte(s)
		}
	}
	return nil
}
