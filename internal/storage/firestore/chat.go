package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/models"
)

// sessionDoc adds the message counter that orders appends
type sessionDoc struct {
	OwnerID      string    `firestore:"ownerId"`
	Counselor    string    `firestore:"counselor,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	MessageCount int64     `firestore:"messageCount"`
}

type messageDoc struct {
	Seq       int64     `firestore:"seq"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func (s *Store) CreateChatSession(cs models.ChatSession) (string, error) {
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := s.opCtx()
	defer cancel()

	ref := s.chats().NewDoc()
	if cs.ID != "" {
		ref = s.chats().Doc(cs.ID)
	}
	doc := sessionDoc{OwnerID: cs.OwnerID, Counselor: cs.Counselor, CreatedAt: cs.CreatedAt}
	if _, err := ref.Create(ctx, doc); err != nil {
		return "", mapErr(err, "chat session", ref.ID)
	}
	return ref.ID, nil
}

func (s *Store) GetChatSession(id string) (models.ChatSession, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	doc, err := s.chats().Doc(id).Get(ctx)
	if err != nil {
		return models.ChatSession{}, mapErr(err, "chat session", id)
	}
	return decodeSession(doc)
}

func (s *Store) ListChatSessions(ownerID string) ([]models.ChatSession, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	sessions := []models.ChatSession{}
	q := s.chats().Where("ownerId", "==", ownerID).OrderBy("createdAt", firestore.Desc)
	err := eachDoc(q.Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		cs, err := decodeSession(doc)
		if err != nil {
			return err
		}
		sessions = append(sessions, cs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) AppendChatMessage(m models.ChatMessage) (string, error) {
	if m.Role != constants.RoleUser && m.Role != constants.RoleAssistant {
		return "", fmt.Errorf("invalid chat role %q", m.Role)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := s.opCtx()
	defer cancel()

	sessionRef := s.chats().Doc(m.SessionID)
	msgRef := sessionRef.Collection(colMessages).NewDoc()
	if m.ID != "" {
		msgRef = sessionRef.Collection(colMessages).Doc(m.ID)
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(sessionRef)
		if err != nil {
			return mapErr(err, "chat session", m.SessionID)
		}
		var sess sessionDoc
		if err := snap.DataTo(&sess); err != nil {
			return err
		}
		seq := sess.MessageCount + 1
		if err := tx.Create(msgRef, messageDoc{Seq: seq, Role: string(m.Role), Content: m.Content, CreatedAt: m.CreatedAt}); err != nil {
			return err
		}
		return tx.Update(sessionRef, []firestore.Update{{Path: "messageCount", Value: seq}})
	})
	if err != nil {
		return "", err
	}
	return msgRef.ID, nil
}

func (s *Store) RecentChatMessages(sessionID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		return []models.ChatMessage{}, nil
	}
	ctx, cancel := s.opCtx()
	defer cancel()

	q := s.chats().Doc(sessionID).Collection(colMessages).OrderBy("seq", firestore.Desc).Limit(limit)
	msgs, err := s.readMessages(q.Documents(ctx), sessionID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) ListChatMessages(sessionID string) ([]models.ChatMessage, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	q := s.chats().Doc(sessionID).Collection(colMessages).OrderBy("seq", firestore.Asc)
	return s.readMessages(q.Documents(ctx), sessionID)
}

// deletePageSize matches the per-commit write cap
const deletePageSize = 500

// DeleteChatSession removes the session and its messages. Messages are swept
// in pages first. The session goes last, in a transaction that confirms no
// message is left, so an interrupted delete can be retried.
func (s *Store) DeleteChatSession(id string) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	sessionRef := s.chats().Doc(id)
	messages := sessionRef.Collection(colMessages)
	if _, err := sessionRef.Get(ctx); err != nil {
		return mapErr(err, "chat session", id)
	}

	for {
		if err := s.sweep(ctx, messages); err != nil {
			return err
		}
		var deleted bool
		err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			deleted = false
			if _, err := tx.Get(sessionRef); err != nil {
				return mapErr(err, "chat session", id)
			}
			left, err := tx.Documents(messages.Limit(1)).GetAll()
			if err != nil {
				return fmt.Errorf("failed to read chat messages: %w", err)
			}
			if len(left) > 0 {
				return nil
			}
			deleted = true
			return tx.Delete(sessionRef)
		})
		if err != nil || deleted {
			return err
		}
	}
}

// sweep deletes every document in col, a page at a time
func (s *Store) sweep(ctx context.Context, col *firestore.CollectionRef) error {
	for {
		docs, err := col.Limit(deletePageSize).Documents(ctx).GetAll()
		if err != nil {
			return fmt.Errorf("failed to read chat messages: %w", err)
		}
		if len(docs) == 0 {
			return nil
		}

		bw := s.client.BulkWriter(ctx)
		jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
		for _, doc := range docs {
			job, err := bw.Delete(doc.Ref)
			if err != nil {
				bw.End()
				return fmt.Errorf("failed to queue message delete: %w", err)
			}
			jobs = append(jobs, job)
		}
		bw.End()
		for _, job := range jobs {
			if _, err := job.Results(); err != nil {
				return fmt.Errorf("failed to delete chat message: %w", err)
			}
		}
	}
}

func (s *Store) readMessages(it *firestore.DocumentIterator, sessionID string) ([]models.ChatMessage, error) {
	msgs := []models.ChatMessage{}
	err := eachDoc(it, func(doc *firestore.DocumentSnapshot) error {
		var md messageDoc
		if err := doc.DataTo(&md); err != nil {
			return fmt.Errorf("failed to decode message %s: %w", doc.Ref.ID, err)
		}
		msgs = append(msgs, models.ChatMessage{
			ID:        doc.Ref.ID,
			SessionID: sessionID,
			Role:      constants.ChatRole(md.Role),
			Content:   md.Content,
			CreatedAt: md.CreatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	return msgs, nil
}

func decodeSession(doc *firestore.DocumentSnapshot) (models.ChatSession, error) {
	var sd sessionDoc
	if err := doc.DataTo(&sd); err != nil {
		return models.ChatSession{}, fmt.Errorf("failed to decode chat session %s: %w", doc.Ref.ID, err)
	}
	return models.ChatSession{ID: doc.Ref.ID, OwnerID: sd.OwnerID, Counselor: sd.Counselor, CreatedAt: sd.CreatedAt}, nil
}
