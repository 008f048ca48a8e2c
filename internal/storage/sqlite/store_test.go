package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createProfile(t *testing.T, store *Store, id string) models.Profile {
	t.Helper()
	p := models.NewProfile(id, "Sam", "sam@example.com", time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	if err := store.CreateProfile(p); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	return p
}

func TestInitCreatesTables(t *testing.T) {
	store := setupTestStore(t)
	for _, table := range []string{"profiles", "consumption_log", "reasons_to_quit", "forum_posts", "forum_replies", "chat_sessions", "chat_messages", "schema_version"} {
		ok, err := store.tableExists(table)
		if err != nil {
			t.Fatalf("failed to check table %s: %v", table, err)
		}
		if !ok {
			t.Errorf("expected table %s to exist", table)
		}
	}

	status, err := store.Runner().Status()
	if err != nil {
		t.Fatalf("failed to read migration status: %v", err)
	}
	if len(status.Pending) != 0 || status.Current != status.Latest {
		t.Errorf("expected fully migrated schema, got %+v", status)
	}
}

func TestLoadBeforeInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := store.Load(); !errors.Is(err, storage.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestLoadUninitializedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("failed to create empty file: %v", err)
	}

	store := NewStore(path)
	if err := store.Load(); !errors.Is(err, storage.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized for an empty file, got %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init after a failed load: %v", err)
	}
	defer store.Close()
	if _, err := store.ListProfiles(); err != nil {
		t.Errorf("failed to query initialized store: %v", err)
	}
}

func TestLoadAfterInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	first := NewStore(path)
	if err := first.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	createProfile(t, first, "u1")
	first.Close()

	second := NewStore(path)
	if err := second.Load(); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	defer second.Close()

	if _, err := second.GetProfile("u1"); err != nil {
		t.Fatalf("failed to read profile after reload: %v", err)
	}
}

func TestProfileLifecycle(t *testing.T) {
	store := setupTestStore(t)
	createProfile(t, store, "u1")

	if err := store.CreateProfile(models.NewProfile("u1", "Dup", "", time.Now())); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := store.GetProfile("u1")
	if err != nil {
		t.Fatalf("failed to get profile: %v", err)
	}
	if !got.SetupIncomplete() {
		t.Error("new profile should need setup")
	}
	if got.AddictionType != constants.DefaultAddictionType {
		t.Errorf("expected default addiction type, got %q", got.AddictionType)
	}

	quit := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	spend := 150.0
	alcohol := constants.AddictionAlcohol
	if err := store.UpdateProfile("u1", models.ProfileUpdate{QuitDate: &quit, DailySpending: &spend, AddictionType: &alcohol}); err != nil {
		t.Fatalf("failed to update profile: %v", err)
	}

	got, err = store.GetProfile("u1")
	if err != nil {
		t.Fatalf("failed to get profile: %v", err)
	}
	if got.QuitDate == nil || !got.QuitDate.Equal(quit) {
		t.Errorf("expected quit date %v, got %v", quit, got.QuitDate)
	}
	if got.DailySpending != 150 || got.AddictionType != constants.AddictionAlcohol {
		t.Errorf("unexpected profile after update: %+v", got)
	}
	if got.DisplayName != "Sam" {
		t.Errorf("display name should be untouched, got %q", got.DisplayName)
	}

	if _, err := store.GetProfile("nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateProfile("nobody", models.ProfileUpdate{QuitDate: &quit}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}

	profiles, err := store.ListProfiles()
	if err != nil {
		t.Fatalf("failed to list profiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Errorf("expected 1 profile, got %d", len(profiles))
	}
}

func TestSaveLogEntry(t *testing.T) {
	store := setupTestStore(t)
	createProfile(t, store, "u1")

	steps := []struct {
		entry    models.LogEntry
		progress models.ProgressUpdate
	}{
		{models.LogEntry{Date: "2024-06-10"}, models.ProgressUpdate{CurrentStreak: 1, LongestStreak: 1, PointsDelta: 10}},
		{models.LogEntry{Date: "2024-06-11"}, models.ProgressUpdate{CurrentStreak: 2, LongestStreak: 2, PointsDelta: 10}},
		{models.LogEntry{Date: "2024-06-11", Consumed: true, Notes: "slipped"}, models.ProgressUpdate{CurrentStreak: 0, LongestStreak: 1, PointsDelta: -5}},
	}
	for _, step := range steps {
		if err := store.SaveLogEntry("u1", step.entry, step.progress); err != nil {
			t.Fatalf("failed to save log entry: %v", err)
		}
	}

	p, err := store.GetProfile("u1")
	if err != nil {
		t.Fatalf("failed to get profile: %v", err)
	}
	if len(p.Log) != 2 {
		t.Fatalf("expected one entry per date, got %d", len(p.Log))
	}
	e, ok := models.FindLogEntry(p.Log, "2024-06-11")
	if !ok || !e.Consumed || e.Notes != "slipped" {
		t.Errorf("expected replaced entry, got %+v", e)
	}
	if p.Points != 15 {
		t.Errorf("expected 15 points, got %d", p.Points)
	}
	if p.CurrentStreak != 0 || p.LongestStreak != 1 {
		t.Errorf("unexpected streaks: current=%d longest=%d", p.CurrentStreak, p.LongestStreak)
	}

	err = store.SaveLogEntry("nobody", models.LogEntry{Date: "2024-06-10"}, models.ProgressUpdate{})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReasons(t *testing.T) {
	store := setupTestStore(t)
	createProfile(t, store, "u1")

	for _, r := range []string{"health", "family", "health", "  money  "} {
		if err := store.AddReason("u1", r); err != nil {
			t.Fatalf("failed to add reason %q: %v", r, err)
		}
	}
	if err := store.AddReason("u1", "   "); err == nil {
		t.Error("expected error for blank reason")
	}

	p, _ := store.GetProfile("u1")
	if len(p.ReasonsToQuit) != 3 {
		t.Fatalf("expected 3 distinct reasons, got %v", p.ReasonsToQuit)
	}

	if err := store.RemoveReason("u1", "family"); err != nil {
		t.Fatalf("failed to remove reason: %v", err)
	}
	if err := store.RemoveReason("u1", "not-there"); err != nil {
		t.Errorf("removing an absent reason should succeed, got %v", err)
	}
	p, _ = store.GetProfile("u1")
	for _, r := range p.ReasonsToQuit {
		if r == "family" {
			t.Error("reason was not removed")
		}
	}

	if err := store.AddReason("nobody", "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestForumReplyCount(t *testing.T) {
	store := setupTestStore(t)

	postID, err := store.CreatePost(models.ForumPost{Title: "Day one", Content: "Starting today", AuthorID: "u1", AuthorName: "Sam"})
	if err != nil {
		t.Fatalf("failed to create post: %v", err)
	}

	const replies = 8
	var wg sync.WaitGroup
	errs := make(chan error, replies)
	for i := 0; i < replies; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.CreateReply(postID, models.ForumReply{Content: "You got this", AuthorID: "u2", AuthorName: "Alex"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("failed to create reply: %v", err)
	}

	post, err := store.GetPost(postID)
	if err != nil {
		t.Fatalf("failed to get post: %v", err)
	}
	n, err := store.CountReplies(postID)
	if err != nil {
		t.Fatalf("failed to count replies: %v", err)
	}
	if post.ReplyCount != replies || n != replies {
		t.Errorf("expected reply count %d, got counter=%d rows=%d", replies, post.ReplyCount, n)
	}

	list, err := store.ListReplies(postID)
	if err != nil {
		t.Fatalf("failed to list replies: %v", err)
	}
	if len(list) != replies {
		t.Errorf("expected %d replies, got %d", replies, len(list))
	}

	if _, err := store.CreateReply("missing", models.ForumReply{Content: "x"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for reply to missing post, got %v", err)
	}
	if n, _ := store.CountReplies("missing"); n != 0 {
		t.Errorf("failed reply must not leave a row behind, got %d", n)
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		_, err := store.CreatePost(models.ForumPost{Title: title, Content: "c", AuthorName: "Anonymous", CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		if err != nil {
			t.Fatalf("failed to create post: %v", err)
		}
	}

	posts, err := store.ListPosts()
	if err != nil {
		t.Fatalf("failed to list posts: %v", err)
	}
	if len(posts) != 3 || posts[0].Title != "third" || posts[2].Title != "first" {
		t.Errorf("unexpected order: %+v", posts)
	}
}

func TestChatMessagesOrderAndWindow(t *testing.T) {
	store := setupTestStore(t)

	sid, err := store.CreateChatSession(models.ChatSession{OwnerID: "u1", Counselor: "Alex"})
	if err != nil {
		t.Fatalf("failed to create chat session: %v", err)
	}

	// Identical timestamps must still come back in append order.
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		role := constants.RoleUser
		if i%2 == 1 {
			role = constants.RoleAssistant
		}
		_, err := store.AppendChatMessage(models.ChatMessage{SessionID: sid, Role: role, Content: string(rune('a' + i)), CreatedAt: at})
		if err != nil {
			t.Fatalf("failed to append message %d: %v", i, err)
		}
	}

	all, err := store.ListChatMessages(sid)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(all) != 25 || all[0].Content != "a" || all[24].Content != "y" {
		t.Fatalf("unexpected message order: first=%q last=%q len=%d", all[0].Content, all[len(all)-1].Content, len(all))
	}

	recent, err := store.RecentChatMessages(sid, constants.ChatWindow)
	if err != nil {
		t.Fatalf("failed to read recent messages: %v", err)
	}
	if len(recent) != constants.ChatWindow {
		t.Fatalf("expected %d recent messages, got %d", constants.ChatWindow, len(recent))
	}
	if recent[0].Content != "f" || recent[len(recent)-1].Content != "y" {
		t.Errorf("expected window f..y oldest first, got %q..%q", recent[0].Content, recent[len(recent)-1].Content)
	}

	if _, err := store.AppendChatMessage(models.ChatMessage{SessionID: "missing", Role: constants.RoleUser, Content: "hi"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing session, got %v", err)
	}
	if _, err := store.AppendChatMessage(models.ChatMessage{SessionID: sid, Role: "system", Content: "hi"}); err == nil {
		t.Error("expected error for invalid role")
	}
}

func TestConcurrentChatAppends(t *testing.T) {
	store := setupTestStore(t)

	const sessions, writers = 8, 10
	ids := make([]string, sessions)
	for i := range ids {
		sid, err := store.CreateChatSession(models.ChatSession{OwnerID: "u1"})
		if err != nil {
			t.Fatalf("failed to create chat session: %v", err)
		}
		ids[i] = sid
	}

	var wg sync.WaitGroup
	errs := make(chan error, sessions*writers)
	for _, sid := range ids {
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(sid string) {
				defer wg.Done()
				_, err := store.AppendChatMessage(models.ChatMessage{SessionID: sid, Role: constants.RoleUser, Content: "hello"})
				errs <- err
			}(sid)
		}
	}
	wg.Wait()
	close(errs)

	failures := 0
	var first error
	for err := range errs {
		if err != nil {
			failures++
			if first == nil {
				first = err
			}
		}
	}
	if failures > 0 {
		t.Fatalf("%d/%d concurrent appends failed, first: %v", failures, sessions*writers, first)
	}

	for _, sid := range ids {
		msgs, err := store.ListChatMessages(sid)
		if err != nil {
			t.Fatalf("failed to list messages: %v", err)
		}
		if len(msgs) != writers {
			t.Errorf("session %s: expected %d messages, got %d", sid, writers, len(msgs))
		}
	}
}

func TestConcurrentProfileCreation(t *testing.T) {
	store := setupTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := models.NewProfile(fmt.Sprintf("u%d", i), "Sam", "", time.Now())
			errs <- store.CreateProfile(p)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent profile creation failed: %v", err)
		}
	}
	profiles, err := store.ListProfiles()
	if err != nil {
		t.Fatalf("failed to list profiles: %v", err)
	}
	if len(profiles) != 20 {
		t.Errorf("expected 20 profiles, got %d", len(profiles))
	}
}

func TestDeleteChatSession(t *testing.T) {
	store := setupTestStore(t)

	sid, err := store.CreateChatSession(models.ChatSession{OwnerID: "u1"})
	if err != nil {
		t.Fatalf("failed to create chat session: %v", err)
	}
	if _, err := store.AppendChatMessage(models.ChatMessage{SessionID: sid, Role: constants.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("failed to append message: %v", err)
	}

	if err := store.DeleteChatSession(sid); err != nil {
		t.Fatalf("failed to delete chat session: %v", err)
	}
	if _, err := store.GetChatSession(sid); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	msgs, err := store.ListChatMessages(sid)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no orphaned messages, got %d", len(msgs))
	}
	if err := store.DeleteChatSession(sid); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	sessions, err := store.ListChatSessions("u1")
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
}

func TestWatchReceivesCommittedChanges(t *testing.T) {
	store := setupTestStore(t)

	sid, err := store.CreateChatSession(models.ChatSession{OwnerID: "u1"})
	if err != nil {
		t.Fatalf("failed to create chat session: %v", err)
	}

	got := make(chan storage.Change, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := store.Watch(ctx, storage.Ref{Collection: storage.CollectionChats, ID: sid}, func(c storage.Change) { got <- c }); err != nil {
		t.Fatalf("failed to watch: %v", err)
	}

	if _, err := store.AppendChatMessage(models.ChatMessage{SessionID: sid, Role: constants.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("failed to append message: %v", err)
	}

	select {
	case c := <-got:
		if c.Kind != storage.ChangeUpdated || c.Ref.ID != sid {
			t.Errorf("unexpected change: %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}

	// A rejected write publishes nothing.
	_, _ = store.AppendChatMessage(models.ChatMessage{SessionID: sid, Role: "bogus", Content: "x"})
	select {
	case c := <-got:
		t.Errorf("unexpected change after failed write: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}
