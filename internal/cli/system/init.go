package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/storage/firestore"
	"github.com/julianstephens/rehab/internal/storage/postgres"
	"github.com/julianstephens/rehab/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if !ctx.IsSQLite() {
			return fmt.Errorf("--force is only supported for SQLite databases")
		}
		dbPath := ctx.Store.GetConfigPath()
		// Don't delete if it's the source (user error protection)
		if c.Source != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			absSource, err := filepath.Abs(c.Source)
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete existing database: %w", err)
				}
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized rehab storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		fmt.Printf("Copying data from: %s\n", c.Source)
		source, err := openSource(c.Source)
		if err != nil {
			return err
		}
		defer source.Close()
		if err := copyData(source, ctx.Store); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Println("Migration completed successfully!")
	}

	return nil
}

func openSource(sourcePath string) (storage.Provider, error) {
	var source storage.Provider
	switch {
	case strings.HasPrefix(sourcePath, "postgres://") || strings.HasPrefix(sourcePath, "postgresql://"):
		if valid, err := postgres.ValidateConnString(sourcePath); !valid {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
			}
			return nil, err
		}
		source = postgres.New(sourcePath)
	case strings.HasPrefix(sourcePath, firestore.Scheme):
		project, ok := firestore.ProjectFromConfig(sourcePath)
		if !ok {
			return nil, fmt.Errorf("firestore source must name a project: %s<project>", firestore.Scheme)
		}
		source = firestore.New(project)
	default:
		source = sqlite.NewStore(sourcePath)
	}

	if err := source.Load(); err != nil {
		return nil, fmt.Errorf("failed to load source database: %w", err)
	}
	return source, nil
}

// copyData copies profiles, forum threads and chat sessions from src into dst.
// Ids are kept, so copying into a store that already holds the same
// documents fails on the first duplicate.
func copyData(src, dst storage.Provider) error {
	fmt.Println("  Copying profiles...")
	profiles, err := src.ListProfiles()
	if err != nil {
		return fmt.Errorf("failed to list profiles from source: %w", err)
	}
	for _, p := range profiles {
		if err := dst.CreateProfile(p); err != nil {
			return fmt.Errorf("failed to add profile %s: %w", p.ID, err)
		}
	}
	fmt.Printf("    Copied %d profiles\n", len(profiles))

	fmt.Println("  Copying forum posts...")
	posts, err := src.ListPosts()
	if err != nil {
		return fmt.Errorf("failed to list posts from source: %w", err)
	}
	replyCount := 0
	for _, post := range posts {
		replies, err := src.ListReplies(post.ID)
		if err != nil {
			return fmt.Errorf("failed to list replies of %s: %w", post.ID, err)
		}
		post.ReplyCount = 0
		if _, err := dst.CreatePost(post); err != nil {
			return fmt.Errorf("failed to add post %s: %w", post.ID, err)
		}
		for _, r := range replies {
			if _, err := dst.CreateReply(post.ID, r); err != nil {
				return fmt.Errorf("failed to add reply %s: %w", r.ID, err)
			}
		}
		replyCount += len(replies)
	}
	fmt.Printf("    Copied %d posts and %d replies\n", len(posts), replyCount)

	fmt.Println("  Copying chat sessions...")
	sessions := 0
	messages := 0
	for _, p := range profiles {
		owned, err := src.ListChatSessions(p.ID)
		if err != nil {
			return fmt.Errorf("failed to list chats of %s: %w", p.ID, err)
		}
		for _, s := range owned {
			msgs, err := src.ListChatMessages(s.ID)
			if err != nil {
				return fmt.Errorf("failed to list messages of %s: %w", s.ID, err)
			}
			if _, err := dst.CreateChatSession(s); err != nil {
				return fmt.Errorf("failed to add chat %s: %w", s.ID, err)
			}
			for _, m := range msgs {
				if _, err := dst.AppendChatMessage(m); err != nil {
					return fmt.Errorf("failed to add message %s: %w", m.ID, err)
				}
			}
			sessions++
			messages += len(msgs)
		}
	}
	fmt.Printf("    Copied %d chat sessions and %d messages\n", sessions, messages)

	return nil
}
