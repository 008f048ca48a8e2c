// Package chat runs the counselor conversation: sessions of ordered
// user and assistant turns, and the relay that answers the latest user turn.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/rehab/internal/constants"
	apperrors "github.com/julianstephens/rehab/internal/errors"
	"github.com/julianstephens/rehab/internal/llm"
	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/storage"
)

// ErrSessionIDRequired is returned when the relay is invoked without a session
var ErrSessionIDRequired = apperrors.New(apperrors.KindValidation, "sessionId is required")

const counselorInstruction = "You are a compassionate and empathetic AI counselor for an addiction recovery app called 'ReHab'. " +
	"Your role is to provide a safe, non-judgmental space for users to talk about their struggles with addiction. " +
	"You should be supportive, encouraging, and offer helpful advice based on established therapeutic principles. " +
	"Do not provide medical advice. Keep your responses concise and easy to understand."

// Result reports what a relay call did. Message is set for no-op outcomes.
type Result struct {
	Generated bool   `json:"generated"`
	Message   string `json:"message,omitempty"`
}

// Store is the part of storage.Provider the relay needs
type Store interface {
	GetChatSession(id string) (models.ChatSession, error)
	RecentChatMessages(sessionID string, limit int) ([]models.ChatMessage, error)
	AppendChatMessage(m models.ChatMessage) (string, error)
}

type Relay struct {
	store  Store
	gen    llm.Generator
	window int
}

func NewRelay(store Store, gen llm.Generator) *Relay {
	return &Relay{store: store, gen: gen, window: constants.ChatWindow}
}

// Respond answers the newest user turn in the session's recent window and
// appends the reply. A window with no user turn is a no-op, not an error.
func (r *Relay) Respond(ctx context.Context, sessionID string) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Result{}, ErrSessionIDRequired
	}

	session, err := r.store.GetChatSession(sessionID)
	if err != nil {
		return Result{}, err
	}

	window, err := r.store.RecentChatMessages(sessionID, r.window)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load chat history: %w", err)
	}

	last := -1
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].Role == constants.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		logger.Debug("No user turn in window, skipping generation", "session", sessionID, "messages", len(window))
		return Result{Generated: false, Message: constants.NoUserTurnReply}, nil
	}

	history := make([]llm.Turn, 0, last)
	for _, m := range window[:last] {
		history = append(history, llm.Turn{Role: string(m.Role), Content: m.Content})
	}

	reply, err := r.gen.Generate(ctx, llm.Request{
		System:  systemInstruction(session.Counselor),
		History: history,
		Prompt:  window[last].Content,
		User:    session.OwnerID,
	})
	if err != nil {
		kind := apperrors.KindGeneration
		if apperrors.KindOf(err) == apperrors.KindRateLimited {
			kind = apperrors.KindRateLimited
		}
		return Result{}, apperrors.Wrap(kind, err, "failed to generate")
	}

	if _, err := r.store.AppendChatMessage(models.ChatMessage{
		SessionID: sessionID,
		Role:      constants.RoleAssistant,
		Content:   reply,
	}); err != nil {
		return Result{}, fmt.Errorf("failed to save reply: %w", err)
	}
	return Result{Generated: true}, nil
}

func systemInstruction(counselor string) string {
	if counselor == "" {
		return counselorInstruction
	}
	return counselorInstruction + " Your name is " + counselor + "."
}

var _ Store = storage.Provider(nil)
