package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/llm"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/validation"
)

// Service is the owner-checked front of the chat store and relay
type Service struct {
	store storage.Provider
	relay *Relay
}

func NewService(store storage.Provider, gen llm.Generator) *Service {
	return &Service{store: store, relay: NewRelay(store, gen)}
}

type sendInput struct {
	Content string `json:"content" validate:"notblank,maxbytes"`
}

// NewSession opens a session owned by id. counselor may be empty.
func (s *Service) NewSession(ctx context.Context, id auth.Identity, counselor string) (models.ChatSession, error) {
	if !id.Valid() {
		return models.ChatSession{}, auth.ErrNoIdentity
	}
	counselor = strings.TrimSpace(counselor)
	if counselor != "" && !isCounselor(counselor) {
		return models.ChatSession{}, validation.Invalid("counselor", "must be one of "+strings.Join(constants.Counselors, ", "))
	}

	cs := models.ChatSession{OwnerID: id.UserID, Counselor: counselor}
	sid, err := s.store.CreateChatSession(cs)
	if err != nil {
		return models.ChatSession{}, fmt.Errorf("failed to create chat session: %w", err)
	}
	return s.store.GetChatSession(sid)
}

// Sessions lists the identity's sessions, newest first
func (s *Service) Sessions(ctx context.Context, id auth.Identity) ([]models.ChatSession, error) {
	if !id.Valid() {
		return nil, auth.ErrNoIdentity
	}
	return s.store.ListChatSessions(id.UserID)
}

// Send appends a user turn and asks the relay to answer it. The user turn
// is kept even when generation fails.
func (s *Service) Send(ctx context.Context, id auth.Identity, sessionID, text string) (Result, error) {
	if _, err := s.owned(id, sessionID); err != nil {
		return Result{}, err
	}
	in := sendInput{Content: strings.TrimSpace(text)}
	if err := validation.Struct(in); err != nil {
		return Result{}, err
	}

	if _, err := s.store.AppendChatMessage(models.ChatMessage{
		SessionID: sessionID,
		Role:      constants.RoleUser,
		Content:   in.Content,
	}); err != nil {
		return Result{}, fmt.Errorf("failed to save message: %w", err)
	}
	return s.relay.Respond(ctx, sessionID)
}

// Respond runs the relay for a session the identity owns
func (s *Service) Respond(ctx context.Context, id auth.Identity, sessionID string) (Result, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Result{}, ErrSessionIDRequired
	}
	if _, err := s.owned(id, sessionID); err != nil {
		return Result{}, err
	}
	return s.relay.Respond(ctx, sessionID)
}

// Session returns a session the identity owns
func (s *Service) Session(ctx context.Context, id auth.Identity, sessionID string) (models.ChatSession, error) {
	return s.owned(id, sessionID)
}

// History returns every message of the session, oldest first
func (s *Service) History(ctx context.Context, id auth.Identity, sessionID string) ([]models.ChatMessage, error) {
	if _, err := s.owned(id, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListChatMessages(sessionID)
}

// Delete removes the session and all of its messages together
func (s *Service) Delete(ctx context.Context, id auth.Identity, sessionID string) error {
	if _, err := s.owned(id, sessionID); err != nil {
		return err
	}
	return s.store.DeleteChatSession(sessionID)
}

// owned loads the session and hides sessions of other users as not found
func (s *Service) owned(id auth.Identity, sessionID string) (models.ChatSession, error) {
	if !id.Valid() {
		return models.ChatSession{}, auth.ErrNoIdentity
	}
	cs, err := s.store.GetChatSession(sessionID)
	if err != nil {
		return models.ChatSession{}, err
	}
	if cs.OwnerID != id.UserID {
		return models.ChatSession{}, fmt.Errorf("chat session %q: %w", sessionID, storage.ErrNotFound)
	}
	return cs, nil
}

func isCounselor(name string) bool {
	for _, c := range constants.Counselors {
		if c == name {
			return true
		}
	}
	return false
}
