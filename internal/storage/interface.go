package storage

import (
	"context"

	"github.com/julianstephens/rehab/internal/models"
)

// Provider is the persistent store. Implementations must be safe for concurrent use.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error
	GetConfigPath() string

	// Profiles
	CreateProfile(p models.Profile) error
	GetProfile(id string) (models.Profile, error)
	ListProfiles() ([]models.Profile, error)
	UpdateProfile(id string, upd models.ProfileUpdate) error

	// Daily log. The entry replaces any entry for the same date, and the
	// progress values are written with it atomically.
	SaveLogEntry(userID string, entry models.LogEntry, progress models.ProgressUpdate) error
	SetStreak(userID string, current, longest int) error

	// Reasons to quit
	AddReason(userID, reason string) error
	RemoveReason(userID, reason string) error

	// Forum
	CreatePost(post models.ForumPost) (string, error)
	GetPost(id string) (models.ForumPost, error)
	ListPosts() ([]models.ForumPost, error)
	// CreateReply inserts the reply and increments the post's reply count in one transaction
	CreateReply(postID string, reply models.ForumReply) (string, error)
	ListReplies(postID string) ([]models.ForumReply, error)

	// Chat
	CreateChatSession(s models.ChatSession) (string, error)
	GetChatSession(id string) (models.ChatSession, error)
	ListChatSessions(ownerID string) ([]models.ChatSession, error)
	AppendChatMessage(m models.ChatMessage) (string, error)
	// RecentChatMessages returns the newest limit messages, oldest first
	RecentChatMessages(sessionID string, limit int) ([]models.ChatMessage, error)
	ListChatMessages(sessionID string) ([]models.ChatMessage, error)
	// DeleteChatSession removes the session and every message in it together
	DeleteChatSession(id string) error

	// Live subscription. fn is called asynchronously after matching writes
	// commit, until the returned func is called or ctx is cancelled.
	Watch(ctx context.Context, ref Ref, fn func(Change)) (func(), error)
}
