// Package sqlstore implements the data half of storage.Provider on
// database/sql. The sqlite and postgres packages wrap it with their own
// lifecycle and change delivery.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/rehab/internal/migration"
	"github.com/julianstephens/rehab/internal/storage"
)

// Publisher receives a change after the write that caused it has committed
type Publisher func(storage.Change)

type Store struct {
	db      *sql.DB
	dialect migration.Dialect
	publish Publisher
}

// New wraps an open database. publish may be nil.
func New(db *sql.DB, dialect migration.Dialect, publish Publisher) *Store {
	if publish == nil {
		publish = func(storage.Change) {}
	}
	return &Store{db: db, dialect: dialect, publish: publish}
}

// DB returns the underlying connection pool
func (s *Store) DB() *sql.DB {
	return s.db
}

// rebind rewrites ? placeholders into $N for postgres
func (s *Store) rebind(query string) string {
	if s.dialect != migration.DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate locks selected rows until commit where the dialect supports it
func (s *Store) forUpdate() string {
	if s.dialect == migration.DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// withTx runs fn in a transaction and publishes the changes it returns once committed
func (s *Store) withTx(fn func(tx *sql.Tx) ([]storage.Change, error)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	changes, err := fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, c := range changes {
		s.publish(c)
	}
	return nil
}

func (s *Store) txExec(tx *sql.Tx, query string, args ...interface{}) (sql.Result, error) {
	return tx.Exec(s.rebind(query), args...)
}

func (s *Store) query(query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.Query(s.rebind(query), args...)
}

func (s *Store) queryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(s.rebind(query), args...)
}

// requireAffected maps a zero-row write to storage.ErrNotFound
func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", what, id, storage.ErrNotFound)
	}
	return nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", what, id, storage.ErrNotFound)
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return t, nil
}

func now() time.Time {
	return time.Now().UTC()
}
