package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/storage"
)

func (s *Store) CreateChatSession(cs models.ChatSession) (string, error) {
	if cs.ID == "" {
		cs.ID = uuid.New().String()
	}
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = now()
	}

	err := s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		_, err := s.txExec(tx, `
			INSERT INTO chat_sessions (id, owner_id, counselor, created_at)
			VALUES (?, ?, ?, ?)`,
			cs.ID, cs.OwnerID, cs.Counselor, formatTime(cs.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("failed to insert chat session: %w", err)
		}
		return []storage.Change{storage.NewChange(storage.CollectionChats, cs.ID, storage.ChangeCreated)}, nil
	})
	if err != nil {
		return "", err
	}
	return cs.ID, nil
}

func (s *Store) GetChatSession(id string) (models.ChatSession, error) {
	row := s.queryRow("SELECT id, owner_id, counselor, created_at FROM chat_sessions WHERE id = ?", id)
	cs, err := scanSession(row)
	if err != nil {
		return models.ChatSession{}, notFound(err, "chat session", id)
	}
	return cs, nil
}

func (s *Store) ListChatSessions(ownerID string) ([]models.ChatSession, error) {
	rows, err := s.query(`
		SELECT id, owner_id, counselor, created_at FROM chat_sessions
		WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.ChatSession{}
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, cs)
	}
	return sessions, rows.Err()
}

func (s *Store) AppendChatMessage(m models.ChatMessage) (string, error) {
	if m.Role != constants.RoleUser && m.Role != constants.RoleAssistant {
		return "", fmt.Errorf("invalid chat role %q", m.Role)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}

	err := s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		var id string
		err := tx.QueryRow(s.rebind("SELECT id FROM chat_sessions WHERE id = ?"+s.forUpdate()), m.SessionID).Scan(&id)
		if err != nil {
			return nil, notFound(err, "chat session", m.SessionID)
		}

		var seq int64
		err = tx.QueryRow(s.rebind("SELECT COALESCE(MAX(seq), 0) FROM chat_messages WHERE session_id = ?"), m.SessionID).Scan(&seq)
		if err != nil {
			return nil, fmt.Errorf("failed to read message sequence: %w", err)
		}

		_, err = s.txExec(tx, `
			INSERT INTO chat_messages (id, session_id, seq, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, m.SessionID, seq+1, string(m.Role), m.Content, formatTime(m.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("failed to insert chat message: %w", err)
		}
		return []storage.Change{storage.NewChange(storage.CollectionChats, m.SessionID, storage.ChangeUpdated)}, nil
	})
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (s *Store) RecentChatMessages(sessionID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		return []models.ChatMessage{}, nil
	}
	msgs, err := s.listMessages(`
		SELECT id, session_id, role, content, created_at FROM chat_messages
		WHERE session_id = ? ORDER BY seq DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) ListChatMessages(sessionID string) ([]models.ChatMessage, error) {
	return s.listMessages(`
		SELECT id, session_id, role, content, created_at FROM chat_messages
		WHERE session_id = ? ORDER BY seq`, sessionID)
}

func (s *Store) DeleteChatSession(id string) error {
	return s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		if _, err := s.txExec(tx, "DELETE FROM chat_messages WHERE session_id = ?", id); err != nil {
			return nil, fmt.Errorf("failed to delete chat messages: %w", err)
		}
		res, err := s.txExec(tx, "DELETE FROM chat_sessions WHERE id = ?", id)
		if err != nil {
			return nil, fmt.Errorf("failed to delete chat session: %w", err)
		}
		if err := requireAffected(res, "chat session", id); err != nil {
			return nil, err
		}
		return []storage.Change{storage.NewChange(storage.CollectionChats, id, storage.ChangeDeleted)}, nil
	})
}

func (s *Store) listMessages(query string, args ...interface{}) ([]models.ChatMessage, error) {
	rows, err := s.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		var role, createdAt string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.Role = constants.ChatRole(role)
		if m.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func scanSession(row rowScanner) (models.ChatSession, error) {
	var cs models.ChatSession
	var createdAt string
	if err := row.Scan(&cs.ID, &cs.OwnerID, &cs.Counselor, &createdAt); err != nil {
		return models.ChatSession{}, err
	}
	var err error
	if cs.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.ChatSession{}, err
	}
	return cs, nil
}
