package forum

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/storage/sqlite"
	"github.com/julianstephens/rehab/internal/validation"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewService(store)
}

func TestCreatePost(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		id         auth.Identity
		input      PostInput
		wantErr    error
		wantField  string
		wantAuthor string
	}{
		{
			name:       "named author",
			id:         auth.Identity{UserID: "u1", DisplayName: "Sam"},
			input:      PostInput{Title: " Day 30 ", Content: "Made it a month"},
			wantAuthor: "Sam",
		},
		{
			name:       "anonymous author",
			id:         auth.Identity{UserID: "u2"},
			input:      PostInput{Title: "Help", Content: "Struggling tonight"},
			wantAuthor: constants.AnonymousAuthor,
		},
		{
			name:    "not logged in",
			input:   PostInput{Title: "x", Content: "y"},
			wantErr: ErrLoginRequired,
		},
		{
			name:      "blank title",
			id:        auth.Identity{UserID: "u1"},
			input:     PostInput{Title: "  ", Content: "y"},
			wantField: "title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, err := svc.CreatePost(ctx, tt.id, tt.input)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if err.Error() != "you must be logged in to post" {
					t.Errorf("unexpected message %q", err.Error())
				}
			case tt.wantField != "":
				fields, ok := validation.Fields(err)
				if !ok {
					t.Fatalf("expected validation error, got %v", err)
				}
				if _, ok := fields[tt.wantField]; !ok {
					t.Errorf("expected error on %s, got %v", tt.wantField, fields)
				}
			default:
				if err != nil {
					t.Fatalf("CreatePost failed: %v", err)
				}
				if post.AuthorName != tt.wantAuthor || post.ReplyCount != 0 || post.ID == "" {
					t.Errorf("unexpected post %+v", post)
				}
				if post.Title != "Day 30" && tt.wantAuthor == "Sam" {
					t.Errorf("expected trimmed title, got %q", post.Title)
				}
			}
		})
	}
}

func TestReplies(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	author := auth.Identity{UserID: "u1", DisplayName: "Sam"}

	post, err := svc.CreatePost(ctx, author, PostInput{Title: "One week", Content: "Seven days"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	for _, text := range []string{"Congrats!", "Keep going"} {
		reply, err := svc.Reply(ctx, auth.Identity{UserID: "u2"}, post.ID, ReplyInput{Content: text})
		if err != nil {
			t.Fatalf("Reply failed: %v", err)
		}
		if reply.ID == "" || reply.CreatedAt.IsZero() {
			t.Errorf("returned reply missing id or timestamp: %+v", reply)
		}
	}

	got, err := svc.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	replies, err := svc.Replies(ctx, post.ID)
	if err != nil {
		t.Fatalf("Replies failed: %v", err)
	}
	if got.ReplyCount != len(replies) || len(replies) != 2 {
		t.Errorf("reply count %d does not match %d replies", got.ReplyCount, len(replies))
	}
	if replies[0].Content != "Congrats!" || replies[0].AuthorName != constants.AnonymousAuthor {
		t.Errorf("unexpected first reply %+v", replies[0])
	}

	if _, err := svc.Reply(ctx, author, "missing", ReplyInput{Content: "hello"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Replies(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Reply(ctx, auth.Identity{}, post.ID, ReplyInput{Content: "hello"}); !errors.Is(err, ErrLoginRequired) {
		t.Errorf("expected ErrLoginRequired, got %v", err)
	}

	posts, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("expected 1 post, got %d", len(posts))
	}
}
