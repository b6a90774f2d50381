// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound is returned when a filter matches no row where one was required.
	ErrNotFound = errors.New("row not found")
	// ErrInvalidIdentifier is returned for collection or field names that are
	// not plain lower-case identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Row is a single record keyed by column name.
type Row map[string]any

// String returns the value of key as a string, or "" if absent or not a string.
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Int64 returns the value of key as an int64, or 0 if absent or not numeric.
func (r Row) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Float64 returns the value of key as a float64, or 0 if absent or not numeric.
func (r Row) Float64(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Bytes returns the value of key as a byte slice.
func (r Row) Bytes(key string) []byte {
	switch v := r[key].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return nil
}

// Query selects rows by equality filters and orders them by one field.
type Query struct {
	// Filters are ANDed equality conditions, field name to value.
	Filters map[string]any
	// OrderBy is the field to sort on. Empty leaves the order unspecified.
	OrderBy string
	// Descending reverses the sort order.
	Descending bool
	// Limit caps the number of rows returned. Zero means no limit.
	Limit int
}

// Store is the named-collection data store the dashboard features are built
// on. Implementations must reject identifiers that fail ValidIdentifier.
type Store interface {
	// Insert adds row to collection and returns it as stored.
	Insert(ctx context.Context, collection string, row Row) (Row, error)

	// Select returns the rows of collection matching q.
	Select(ctx context.Context, collection string, q Query) ([]Row, error)

	// Get returns the single row matching filters, or ErrNotFound.
	Get(ctx context.Context, collection string, filters map[string]any) (Row, error)

	// Update applies patch to every row matching filters and returns the
	// number of rows changed.
	Update(ctx context.Context, collection string, filters map[string]any, patch Row) (int64, error)

	// Delete removes every row matching filters and returns the number removed.
	Delete(ctx context.Context, collection string, filters map[string]any) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}

// Error describes a failed store operation.
type Error struct {
	Op         string
	Collection string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var identifierRE = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidIdentifier reports whether name is safe to use as a collection or field name.
func ValidIdentifier(name string) bool {
	return identifierRE.MatchString(name)
}
