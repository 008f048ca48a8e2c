package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/migration"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/storage/broker"
	"github.com/julianstephens/rehab/internal/storage/sqlstore"
	"github.com/julianstephens/rehab/migrations"
)

// Write transactions take the lock up front. A deferred transaction that reads
// before writing cannot wait out a concurrent writer in WAL mode.
const pragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

type Store struct {
	*sqlstore.Store

	path   string
	db     *sql.DB
	broker *broker.Broker
}

var _ storage.Provider = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{
		path:   path,
		broker: broker.New(),
	}
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite", s.path+pragmas)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	s.broker = broker.New()
	s.Store = sqlstore.New(db, migration.DialectSQLite, s.broker.Publish)
	return nil
}

func (s *Store) Init() error {
	if s.db != nil {
		return s.runMigrations()
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := s.open(); err != nil {
		return err
	}

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return storage.ErrNotInitialized
	}

	if err := s.open(); err != nil {
		return err
	}
	ok, err := s.tableExists("schema_version")
	if err == nil && !ok {
		err = storage.ErrNotInitialized
	}
	if err == nil {
		err = s.Runner().ValidateVersion()
	}
	if err != nil {
		s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Close releases the connection. The store can be opened again with Init or Load.
func (s *Store) Close() error {
	s.broker.Close()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// GetDB returns the underlying database connection, or nil before Init or Load
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Watch delivers committed changes made through this store
func (s *Store) Watch(ctx context.Context, ref storage.Ref, fn func(storage.Change)) (func(), error) {
	return s.broker.Subscribe(ctx, ref, fn)
}

// Runner returns a migration runner over the embedded sqlite migrations
func (s *Store) Runner() *migration.Runner {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return migration.NewRunner(s.db, subFS, migration.DialectSQLite)
}

func (s *Store) runMigrations() error {
	_, err := s.Runner().ApplyMigrations(func(msg string) {
		logger.Info(msg)
	})
	return err
}

// tableExists checks if a table exists in the SQLite database.
// The check is case-insensitive to match SQLite's behavior.
func (s *Store) tableExists(tableName string) (bool, error) {
	var count int
	row := s.db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name COLLATE NOCASE = ?", tableName)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
