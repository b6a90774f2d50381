// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/wedplan/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Wrap uses an already-open database as-is, without running migrations.
func Wrap(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert adds row to collection.
func (s *SQLiteStore) Insert(ctx context.Context, collection string, row storage.Row) (storage.Row, error) {
	if len(row) == 0 {
		return nil, opError("insert", collection, fmt.Errorf("empty row"))
	}
	cols, err := sortedKeys(collection, row)
	if err != nil {
		return nil, opError("insert", collection, err)
	}

	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = row[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		collection, strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, opError("insert", collection, err)
	}

	stored := make(storage.Row, len(row))
	for k, v := range row {
		stored[k] = v
	}
	return stored, nil
}

// Select returns the rows of collection matching q.
func (s *SQLiteStore) Select(ctx context.Context, collection string, q storage.Query) ([]storage.Row, error) {
	where, args, err := whereClause(collection, q.Filters)
	if err != nil {
		return nil, opError("select", collection, err)
	}

	query := "SELECT * FROM " + collection + where
	if q.OrderBy != "" {
		if !storage.ValidIdentifier(q.OrderBy) {
			return nil, opError("select", collection, fmt.Errorf("%w: %q", storage.ErrInvalidIdentifier, q.OrderBy))
		}
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, opError("select", collection, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, opError("select", collection, err)
	}
	return result, nil
}

// Get returns the first row matching filters.
func (s *SQLiteStore) Get(ctx context.Context, collection string, filters map[string]any) (storage.Row, error) {
	rows, err := s.Select(ctx, collection, storage.Query{Filters: filters, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, opError("get", collection, storage.ErrNotFound)
	}
	return rows[0], nil
}

// Update applies patch to the rows matching filters. At least one filter is
// required so a typo cannot rewrite a whole collection.
func (s *SQLiteStore) Update(ctx context.Context, collection string, filters map[string]any, patch storage.Row) (int64, error) {
	if len(filters) == 0 {
		return 0, opError("update", collection, fmt.Errorf("at least one filter is required"))
	}
	if len(patch) == 0 {
		return 0, opError("update", collection, fmt.Errorf("empty patch"))
	}
	cols, err := sortedKeys(collection, patch)
	if err != nil {
		return 0, opError("update", collection, err)
	}
	where, whereArgs, err := whereClause(collection, filters)
	if err != nil {
		return 0, opError("update", collection, err)
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(whereArgs))
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, patch[c])
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", collection, strings.Join(sets, ", "), where)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, opError("update", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, opError("update", collection, err)
	}
	return n, nil
}

// Delete removes the rows matching filters. At least one filter is required.
func (s *SQLiteStore) Delete(ctx context.Context, collection string, filters map[string]any) (int64, error) {
	if len(filters) == 0 {
		return 0, opError("delete", collection, fmt.Errorf("at least one filter is required"))
	}
	where, args, err := whereClause(collection, filters)
	if err != nil {
		return 0, opError("delete", collection, err)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+collection+where, args...)
	if err != nil {
		return 0, opError("delete", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, opError("delete", collection, err)
	}
	return n, nil
}

func opError(op, collection string, err error) error {
	return &storage.Error{Op: op, Collection: collection, Err: err}
}

// sortedKeys validates the collection and every key of row, returning the keys
// sorted so generated SQL is stable.
func sortedKeys(collection string, row map[string]any) ([]string, error) {
	if !storage.ValidIdentifier(collection) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidIdentifier, collection)
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		if !storage.ValidIdentifier(k) {
			return nil, fmt.Errorf("%w: %q", storage.ErrInvalidIdentifier, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func whereClause(collection string, filters map[string]any) (string, []any, error) {
	cols, err := sortedKeys(collection, filters)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, nil
	}
	conds := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		conds[i] = c + " = ?"
		args[i] = filters[c]
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func scanRows(rows *sql.Rows) ([]storage.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := []storage.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(storage.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return result, nil
}
