package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"sync"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/migration"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/storage/broker"
	"github.com/julianstephens/rehab/internal/storage/sqlstore"
	"github.com/julianstephens/rehab/migrations"
)

// notifyChannel is the LISTEN/NOTIFY channel every rehab process shares
const notifyChannel = constants.AppName + "_changes"

type Store struct {
	*sqlstore.Store

	connStr string
	db      *sql.DB
	broker  *broker.Broker

	listenOnce sync.Once
	listenErr  error
	listener   *pq.Listener
	stop       chan struct{}
}

var _ storage.Provider = (*Store)(nil)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

func New(connStr string) *Store {
	s := &Store{
		connStr: connStr,
		broker:  broker.New(),
		stop:    make(chan struct{}),
	}
	s.ensureSearchPath()
	return s
}

func (s *Store) ensureSearchPath() {
	if strings.HasPrefix(s.connStr, "postgres://") || strings.HasPrefix(s.connStr, "postgresql://") {
		u, err := url.Parse(s.connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
			s.connStr = u.String()
		}
	} else if !hasSearchPathParam(s.connStr) {
		s.connStr = strings.TrimSpace(s.connStr) + " search_path=" + constants.AppName
	}
}

// hasSearchPathParam returns true if the given DSN-style connection string
// contains a search_path parameter key (case-insensitive).
func hasSearchPathParam(connStr string) bool {
	return hasDSNKey(connStr, "search_path")
}

// hasSSLMode checks if the connection string contains an sslmode parameter key (case-insensitive).
// It supports both URL-style and DSN-style connection strings.
func hasSSLMode(connStr string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for key := range u.Query() {
			if strings.EqualFold(key, "sslmode") {
				return true
			}
		}
	}
	return hasDSNKey(connStr, "sslmode")
}

func hasDSNKey(connStr, key string) bool {
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], key) {
			return true
		}
	}
	return false
}

// ValidateConnString checks that connStr is a PostgreSQL URI or DSN and
// that it carries no password. Passwords belong in ~/.pgpass or PGPASSWORD.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}

	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: invalid connection string format: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		parsedURL, err := url.Parse(connStr)
		if err != nil {
			return false, fmt.Errorf("%w: failed to parse connection URL: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := parsedURL.User.Password(); isSet {
			return false, ErrEmbeddedCredentials
		}
		if parsedURL.Host == "" && parsedURL.User == nil && (parsedURL.Path == "" || parsedURL.Path == "/") {
			return false, fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
		return true, nil
	}

	if hasDSNKey(connStr, "password") {
		return false, ErrEmbeddedCredentials
	}
	return true, nil
}

func (s *Store) open() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	s.db = db
	s.Store = sqlstore.New(db, migration.DialectPostgres, s.notify)
	return nil
}

func (s *Store) Init() error {
	if s.db == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	if _, err := s.db.Exec("CREATE SCHEMA IF NOT EXISTS " + constants.AppName); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := s.Runner().ApplyMigrations(func(msg string) { logger.Info(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}
	if err := s.open(); err != nil {
		return err
	}
	return s.Runner().ValidateVersion()
}

func (s *Store) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
	s.broker.Close()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) GetConfigPath() string {
	// Return a non-sensitive identifier instead of the full connection string
	return "postgresql"
}

// Runner returns a migration runner over the embedded postgres migrations
func (s *Store) Runner() *migration.Runner {
	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		panic(err)
	}
	return migration.NewRunner(s.db, subFS, migration.DialectPostgres)
}

// notify forwards a committed change to every process listening on the
// channel, this one included. Delivery is best effort.
func (s *Store) notify(c storage.Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		logger.Warn("Failed to encode change", "error", err)
		return
	}
	if _, err := s.db.Exec("SELECT pg_notify($1, $2)", notifyChannel, string(payload)); err != nil {
		logger.Warn("Failed to publish change", "collection", c.Ref.Collection, "id", c.Ref.ID, "error", err)
	}
}

// Watch subscribes to changes committed by any process sharing the database
func (s *Store) Watch(ctx context.Context, ref storage.Ref, fn func(storage.Change)) (func(), error) {
	s.listenOnce.Do(func() { s.listenErr = s.startListener() })
	if s.listenErr != nil {
		return nil, s.listenErr
	}
	return s.broker.Subscribe(ctx, ref, fn)
}

func (s *Store) startListener() error {
	l := pq.NewListener(s.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("Postgres listener event", "event", ev, "error", err)
		}
	})
	if err := l.Listen(notifyChannel); err != nil {
		l.Close()
		return fmt.Errorf("failed to listen for changes: %w", err)
	}
	s.listener = l

	go s.forward(l)
	return nil
}

func (s *Store) forward(l *pq.Listener) {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-s.stop:
			return
		case n, ok := <-l.Notify:
			if !ok {
				return
			}
			// A nil notification follows a reconnect; anything sent in the gap is lost.
			if n == nil {
				continue
			}
			var c storage.Change
			if err := json.Unmarshal([]byte(n.Extra), &c); err != nil {
				logger.Warn("Ignoring malformed change notification", "error", err)
				continue
			}
			s.broker.Publish(c)
		case <-ping.C:
			go func() { _ = l.Ping() }()
		}
	}
}
