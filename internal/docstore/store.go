// Package docstore is a path-addressed document store. Documents are JSON
// values stored under "<collection>/<key>" and are only ever read whole,
// written whole or appended under a generated key.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("docstore: document not found")
	ErrInvalidPath = errors.New("docstore: invalid path")
	ErrInvalidData = errors.New("docstore: document is not valid JSON")
)

// Document is a single stored value together with its key inside the
// collection it was read from.
type Document struct {
	Key  string
	Data []byte
}

type Store interface {
	// ReadAll returns every document of a collection ordered by key.
	ReadAll(ctx context.Context, collection string) ([]Document, error)
	// Read returns the document stored at path or ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write replaces the document at path, creating it when missing.
	Write(ctx context.Context, path string, data []byte) error
	// Append stores data under a newly generated key and returns the key.
	Append(ctx context.Context, collection string, data []byte) (string, error)
}

// Direct returns the store behind any read cache wrapping s. Reads that feed
// a write go through it.
func Direct(s Store) Store {
	for {
		wrapper, ok := s.(interface{ Unwrap() Store })
		if !ok {
			return s
		}
		s = wrapper.Unwrap()
	}
}

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func Path(collection, key string) string {
	return collection + "/" + key
}

// SplitPath validates a "<collection>/<key>" path and returns its parts.
func SplitPath(path string) (collection, key string, err error) {
	collection, key, ok := strings.Cut(path, "/")
	if !ok || !ValidSegment(collection) || !ValidSegment(key) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return collection, key, nil
}

func ValidSegment(s string) bool {
	return segmentPattern.MatchString(s)
}

// NewKey returns a time ordered key, so lexical key order is insertion order.
func NewKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func checkData(data []byte) error {
	if !json.Valid(data) {
		return ErrInvalidData
	}
	return nil
}

// Get reads the document at path and decodes it into T.
func Get[T any](ctx context.Context, s Store, path string) (T, error) {
	var v T
	data, err := s.Read(ctx, path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("docstore: decode %s: %w", path, err)
	}
	return v, nil
}

// Put encodes v and writes it at path.
func Put(ctx context.Context, s Store, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docstore: encode %s: %w", path, err)
	}
	return s.Write(ctx, path, data)
}

// Add encodes v and appends it to collection.
func Add(ctx context.Context, s Store, collection string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("docstore: encode %s: %w", collection, err)
	}
	return s.Append(ctx, collection, data)
}

// Decode unmarshals a document read through ReadAll.
func Decode[T any](doc Document) (T, error) {
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return v, fmt.Errorf("docstore: decode %s: %w", doc.Key, err)
	}
	return v, nil
}
