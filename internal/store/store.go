// Package store keeps JSON documents in SQLite tables keyed by a unique name.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("document name already exists")
)

// Document is implemented by every type kept in a Collection.
type Document interface {
	DocID() string
	DocName() string
}

// Collection is a table of T documents. Table names are fixed by the
// constructors below, never taken from input.
type Collection[T Document] struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

func newCollection[T Document](db *sql.DB, table string) *Collection[T] {
	return &Collection[T]{db: db, table: table, now: time.Now}
}

// Insert stores doc. It returns ErrDuplicate when the name is taken.
func (c *Collection[T]) Insert(ctx context.Context, doc T) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.table, err)
	}
	ts := c.timestamp()
	_, err = c.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, name, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.table), doc.DocID(), doc.DocName(), string(body), ts, ts)
	if err != nil {
		return c.wrap("insert", err)
	}
	return nil
}

// Get returns the document stored under name.
func (c *Collection[T]) Get(ctx context.Context, name string) (T, error) {
	var zero T
	var body string
	err := c.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT document FROM %s WHERE name = ?`, c.table), name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, c.wrap("get", err)
	}
	return c.decode(body)
}

// Exists reports whether a document named name is stored.
func (c *Collection[T]) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE name = ? LIMIT 1)`, c.table), name).Scan(&exists)
	if err != nil {
		return false, c.wrap("check existence", err)
	}
	return exists, nil
}

// Replace overwrites the document stored under name with doc. doc may carry a
// different name, in which case the document is renamed.
func (c *Collection[T]) Replace(ctx context.Context, name string, doc T) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.table, err)
	}
	res, err := c.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET name = ?, document = ?, updated_at = ?
		WHERE name = ?
	`, c.table), doc.DocName(), string(body), c.timestamp(), name)
	if err != nil {
		return c.wrap("replace", err)
	}
	return c.expectOne(res)
}

// Delete removes the document stored under name.
func (c *Collection[T]) Delete(ctx context.Context, name string) error {
	res, err := c.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE name = ?`, c.table), name)
	if err != nil {
		return c.wrap("delete", err)
	}
	return c.expectOne(res)
}

// List returns every document accepted by match, ordered by name. A nil match
// accepts everything.
func (c *Collection[T]) List(ctx context.Context, match func(T) bool) ([]T, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`SELECT document FROM %s ORDER BY name`, c.table))
	if err != nil {
		return nil, c.wrap("list", err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, c.wrap("scan", err)
		}
		doc, err := c.decode(body)
		if err != nil {
			return nil, err
		}
		if match == nil || match(doc) {
			out = append(out, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, c.wrap("list", err)
	}
	return out, nil
}

func (c *Collection[T]) decode(body string) (T, error) {
	var doc T
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return doc, fmt.Errorf("decode %s document: %w", c.table, err)
	}
	return doc, nil
}

func (c *Collection[T]) expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return c.wrap("rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Collection[T]) timestamp() string {
	return c.now().UTC().Format(time.RFC3339Nano)
}

func (c *Collection[T]) wrap(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s %s: %w", op, c.table, ErrDuplicate)
	}
	return fmt.Errorf("%s %s: %w", op, c.table, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
