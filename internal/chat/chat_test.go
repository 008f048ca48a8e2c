package chat

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/constants"
	apperrors "github.com/julianstephens/rehab/internal/errors"
	"github.com/julianstephens/rehab/internal/llm"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/storage/sqlite"
)

func setupTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// recorder is a generator that remembers its last request
type recorder struct {
	calls int
	last  llm.Request
	reply string
	err   error
}

func (r *recorder) Generate(ctx context.Context, req llm.Request) (string, error) {
	r.calls++
	r.last = req
	return r.reply, r.err
}

func appendTurn(t *testing.T, store storage.Provider, sid string, role constants.ChatRole, content string) {
	t.Helper()
	if _, err := store.AppendChatMessage(models.ChatMessage{SessionID: sid, Role: role, Content: content}); err != nil {
		t.Fatalf("failed to append message: %v", err)
	}
}

func TestRelayRespond(t *testing.T) {
	store := setupTestStore(t)
	gen := &recorder{reply: "That sounds hard. What helped last time?"}
	relay := NewRelay(store, gen)

	sid, _ := store.CreateChatSession(models.ChatSession{OwnerID: "u1", Counselor: "Alex"})
	appendTurn(t, store, sid, constants.RoleUser, "hi")
	appendTurn(t, store, sid, constants.RoleAssistant, "hello")
	appendTurn(t, store, sid, constants.RoleUser, "I want to smoke")

	res, err := relay.Respond(context.Background(), sid)
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if !res.Generated {
		t.Error("expected a generated reply")
	}

	if gen.last.Prompt != "I want to smoke" {
		t.Errorf("expected latest user turn as prompt, got %q", gen.last.Prompt)
	}
	if len(gen.last.History) != 2 || gen.last.History[0].Content != "hi" || gen.last.History[1].Role != "assistant" {
		t.Errorf("unexpected history %+v", gen.last.History)
	}
	if !strings.Contains(gen.last.System, "Do not provide medical advice") || !strings.Contains(gen.last.System, "Alex") {
		t.Errorf("unexpected system instruction %q", gen.last.System)
	}
	if gen.last.User != "u1" {
		t.Errorf("expected request attributed to owner, got %q", gen.last.User)
	}

	msgs, _ := store.ListChatMessages(sid)
	if len(msgs) != 4 || msgs[3].Role != constants.RoleAssistant || msgs[3].Content != gen.reply {
		t.Errorf("expected appended assistant reply, got %+v", msgs)
	}
}

func TestRelayNoUserTurn(t *testing.T) {
	tests := []struct {
		name  string
		turns []constants.ChatRole
	}{
		{name: "empty session"},
		{name: "assistant only", turns: []constants.ChatRole{constants.RoleAssistant, constants.RoleAssistant}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			gen := &recorder{reply: "x"}
			sid, _ := store.CreateChatSession(models.ChatSession{OwnerID: "u1"})
			for _, role := range tt.turns {
				appendTurn(t, store, sid, role, "welcome")
			}

			res, err := NewRelay(store, gen).Respond(context.Background(), sid)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if res.Generated || res.Message != constants.NoUserTurnReply {
				t.Errorf("unexpected result %+v", res)
			}
			if gen.calls != 0 {
				t.Error("generator must not be called")
			}
			msgs, _ := store.ListChatMessages(sid)
			if len(msgs) != len(tt.turns) {
				t.Errorf("no message should be appended, got %d", len(msgs))
			}
		})
	}
}

func TestRelayWindow(t *testing.T) {
	store := setupTestStore(t)
	gen := &recorder{reply: "ok"}
	sid, _ := store.CreateChatSession(models.ChatSession{OwnerID: "u1"})

	// The only user turn falls outside the window.
	appendTurn(t, store, sid, constants.RoleUser, "old question")
	for i := 0; i < constants.ChatWindow; i++ {
		appendTurn(t, store, sid, constants.RoleAssistant, fmt.Sprintf("a%d", i))
	}

	res, err := NewRelay(store, gen).Respond(context.Background(), sid)
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if res.Generated || gen.calls != 0 {
		t.Errorf("expected no-op, got %+v after %d calls", res, gen.calls)
	}

	appendTurn(t, store, sid, constants.RoleUser, "new question")
	if _, err := NewRelay(store, gen).Respond(context.Background(), sid); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if got := len(gen.last.History); got != constants.ChatWindow-1 {
		t.Errorf("expected %d history turns, got %d", constants.ChatWindow-1, got)
	}
}

func TestRelayErrors(t *testing.T) {
	store := setupTestStore(t)

	if _, err := NewRelay(store, &recorder{}).Respond(context.Background(), " "); !errors.Is(err, ErrSessionIDRequired) {
		t.Errorf("expected ErrSessionIDRequired, got %v", err)
	}
	if _, err := NewRelay(store, &recorder{}).Respond(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	sid, _ := store.CreateChatSession(models.ChatSession{OwnerID: "u1"})
	appendTurn(t, store, sid, constants.RoleUser, "hello?")

	gen := &recorder{err: errors.New("timeout")}
	_, err := NewRelay(store, gen).Respond(context.Background(), sid)
	if apperrors.KindOf(err) != apperrors.KindGeneration {
		t.Errorf("expected generation error, got %v", err)
	}
	msgs, _ := store.ListChatMessages(sid)
	if len(msgs) != 1 {
		t.Errorf("failed generation must not append, got %d messages", len(msgs))
	}

	gen = &recorder{err: llm.ErrRateLimited}
	if _, err := NewRelay(store, gen).Respond(context.Background(), sid); apperrors.KindOf(err) != apperrors.KindRateLimited {
		t.Errorf("expected rate limited error, got %v", err)
	}
}

func TestServiceOwnership(t *testing.T) {
	store := setupTestStore(t)
	gen := &recorder{reply: "I'm here for you."}
	svc := NewService(store, gen)
	ctx := context.Background()

	owner := auth.Identity{UserID: "u1", DisplayName: "Sam"}
	other := auth.Identity{UserID: "u2"}

	cs, err := svc.NewSession(ctx, owner, "Dr. Evelyn Reed")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if _, err := svc.NewSession(ctx, owner, "Nobody"); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation error for unknown counselor, got %v", err)
	}
	if _, err := svc.NewSession(ctx, auth.Identity{}, ""); !errors.Is(err, auth.ErrNoIdentity) {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}

	res, err := svc.Send(ctx, owner, cs.ID, "  rough day  ")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !res.Generated {
		t.Error("expected generated reply")
	}
	history, err := svc.History(ctx, owner, cs.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 || history[0].Content != "rough day" {
		t.Errorf("unexpected history %+v", history)
	}

	if _, err := svc.Send(ctx, owner, cs.ID, "   "); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation error for blank message, got %v", err)
	}

	if _, err := svc.History(ctx, other, cs.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign session should look missing, got %v", err)
	}
	if _, err := svc.Respond(ctx, other, cs.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign relay should look missing, got %v", err)
	}
	if err := svc.Delete(ctx, other, cs.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign delete should look missing, got %v", err)
	}

	sessions, _ := svc.Sessions(ctx, owner)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if err := svc.Delete(ctx, owner, cs.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.History(ctx, owner, cs.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
