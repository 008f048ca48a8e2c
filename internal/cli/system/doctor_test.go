package system

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/backup"
	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/forum"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/storage/sqlite"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func setupTestDoctorDB(t *testing.T) (*cli.Context, *sqlite.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := &cli.Context{
		Store:    store,
		Identity: auth.Identity{UserID: "u1", DisplayName: "Sam"},
		Now:      func() time.Time { return testNow },
	}
	return ctx, store
}

func TestDoctorCmd_HealthyDB(t *testing.T) {
	ctx, _ := setupTestDoctorDB(t)

	tr, err := ctx.Tracker()
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	if _, err := tr.LogDay(ctx.Background(), ctx.Identity, false, "", testNow); err != nil {
		t.Fatalf("failed to log day: %v", err)
	}

	// Should pass all checks (missing backups is a warning)
	cmd := &DoctorCmd{}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("doctor command failed on healthy database: %v", err)
	}
}

func TestDoctorCmd_BrokenSchema(t *testing.T) {
	ctx, store := setupTestDoctorDB(t)

	db := store.GetDB()
	if _, err := db.Exec("DELETE FROM schema_version"); err != nil {
		t.Fatalf("failed to delete schema version: %v", err)
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (999)"); err != nil {
		t.Fatalf("failed to insert corrupted schema version: %v", err)
	}

	cmd := &DoctorCmd{}
	if err := cmd.Run(ctx); err == nil {
		t.Error("doctor command should fail with corrupted schema")
	}
}

func TestDoctorCmd_WithBackups(t *testing.T) {
	ctx, _ := setupTestDoctorDB(t)

	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	if _, err := mgr.Create(); err != nil {
		t.Fatalf("failed to create backup: %v", err)
	}

	if err := checkBackupsPresent(ctx); err != nil {
		t.Errorf("expected backups to be found: %v", err)
	}
	cmd := &DoctorCmd{}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("doctor command failed with backups present: %v", err)
	}
}

func TestCheckBackupsPresent_Missing(t *testing.T) {
	ctx, _ := setupTestDoctorDB(t)

	err := checkBackupsPresent(ctx)
	if _, ok := err.(errWarning); !ok {
		t.Errorf("expected a warning for missing backups, got %v", err)
	}
}

func TestCheckMigrationsComplete_Incomplete(t *testing.T) {
	ctx, store := setupTestDoctorDB(t)

	current, err := store.Runner().GetCurrentVersion()
	if err != nil {
		t.Fatalf("failed to get current version: %v", err)
	}
	if current < 2 {
		t.Skip("need at least two migrations")
	}

	db := store.GetDB()
	if _, err := db.Exec("DELETE FROM schema_version"); err != nil {
		t.Fatalf("failed to delete schema version: %v", err)
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", current-1); err != nil {
		t.Fatalf("failed to insert downgraded schema version: %v", err)
	}

	if err := checkMigrationsComplete(ctx); err == nil {
		t.Error("checkMigrationsComplete should fail with incomplete migrations")
	}
}

func TestCheckDailyLogs(t *testing.T) {
	t.Run("future entry fails", func(t *testing.T) {
		ctx, store := setupTestDoctorDB(t)
		if _, err := ctx.Tracker(); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}
		entry := models.LogEntry{Date: "2024-06-05"}
		progress := models.ProgressUpdate{CurrentStreak: 0, LongestStreak: 1}
		if err := store.SaveLogEntry("u1", entry, progress); err != nil {
			t.Fatalf("failed to save log entry: %v", err)
		}

		err := checkDailyLogs(ctx)
		if err == nil {
			t.Fatal("expected future entry to fail")
		}
		if _, ok := err.(errWarning); ok {
			t.Errorf("expected a failure, got warning: %v", err)
		}
	})

	t.Run("stale streak warns", func(t *testing.T) {
		ctx, store := setupTestDoctorDB(t)
		if _, err := ctx.Tracker(); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}
		if err := store.SetStreak("u1", 12, 12); err != nil {
			t.Fatalf("failed to set streak: %v", err)
		}

		err := checkDailyLogs(ctx)
		if _, ok := err.(errWarning); !ok {
			t.Errorf("expected a warning for a stale streak, got %v", err)
		}
	})
}

func TestCheckReplyCounters(t *testing.T) {
	ctx, store := setupTestDoctorDB(t)

	post, err := ctx.Forum().CreatePost(ctx.Background(), ctx.Identity, forum.PostInput{Title: "Day one", Content: "Starting today"})
	if err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	if err := checkReplyCounters(ctx); err != nil {
		t.Fatalf("expected consistent counters: %v", err)
	}

	if _, err := store.GetDB().Exec("UPDATE forum_posts SET reply_count = 3 WHERE id = ?", post.ID); err != nil {
		t.Fatalf("failed to corrupt reply count: %v", err)
	}
	if err := checkReplyCounters(ctx); err == nil {
		t.Error("expected a mismatched reply counter to fail")
	}
}

func TestCheckClockTimezone(t *testing.T) {
	if err := checkClockTimezone(testNow); err != nil {
		t.Errorf("clock/timezone check failed: %v", err)
	}
	if err := checkClockTimezone(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Error("expected a clock in 1999 to fail")
	}
}
