package cli

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/backup"
	"github.com/julianstephens/rehab/internal/chat"
	"github.com/julianstephens/rehab/internal/coping"
	"github.com/julianstephens/rehab/internal/forum"
	"github.com/julianstephens/rehab/internal/llm"
	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/migration"
	"github.com/julianstephens/rehab/internal/notifier"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/storage/sqlite"
	"github.com/julianstephens/rehab/internal/tracker"
)

// ErrNoMigrations is returned by commands that need a SQL backend
var ErrNoMigrations = errors.New("this storage backend has no schema migrations")

// Migratable is implemented by the SQL stores
type Migratable interface {
	Runner() *migration.Runner
}

type Context struct {
	Store    storage.Provider
	Identity auth.Identity
	// Generator overrides the OpenAI client, mostly for tests
	Generator llm.Generator
	Model     string
	Now       func() time.Time

	tracker *tracker.Service
}

// Clock returns the current time
func (c *Context) Clock() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Background returns a context carrying the local identity
func (c *Context) Background() context.Context {
	return auth.WithIdentity(context.Background(), c.Identity)
}

// Tracker returns the profile service, creating the local profile on first use
func (c *Context) Tracker() (*tracker.Service, error) {
	if c.tracker == nil {
		c.tracker = tracker.NewService(c.Store, tracker.WithNotifier(notifier.FromEnv()))
	}
	if _, err := c.tracker.SignUp(c.Background(), c.Identity, c.Clock()); err != nil {
		return nil, err
	}
	return c.tracker, nil
}

// LLM returns the configured generator, building the OpenAI client on demand
func (c *Context) LLM() (llm.Generator, error) {
	if c.Generator != nil {
		return c.Generator, nil
	}
	client, err := llm.NewOpenAIClient(llm.OpenAIConfig{Model: c.Model})
	if err != nil {
		return nil, err
	}
	c.Generator = client
	return client, nil
}

func (c *Context) Chat() (*chat.Service, error) {
	gen, err := c.LLM()
	if err != nil {
		return nil, err
	}
	return chat.NewService(c.Store, gen), nil
}

func (c *Context) Coping() (*coping.Suggester, error) {
	gen, err := c.LLM()
	if err != nil {
		return nil, err
	}
	return coping.NewSuggester(gen), nil
}

func (c *Context) Forum() *forum.Service {
	return forum.NewService(c.Store)
}

// Runner returns the migration runner of a SQL store
func (c *Context) Runner() (*migration.Runner, error) {
	m, ok := c.Store.(Migratable)
	if !ok {
		return nil, ErrNoMigrations
	}
	return m.Runner(), nil
}

// IsSQLite reports whether the store is a local SQLite file
func (c *Context) IsSQLite() bool {
	_, ok := c.Store.(*sqlite.Store)
	return ok
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if !c.IsSQLite() {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}
