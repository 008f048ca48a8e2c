package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/storage"
)

func (s *Store) CreatePost(post models.ForumPost) (string, error) {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now()
	}

	err := s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		_, err := s.txExec(tx, `
			INSERT INTO forum_posts (id, title, content, author_id, author_name, created_at, reply_count)
			VALUES (?, ?, ?, ?, ?, ?, 0)`,
			post.ID, post.Title, post.Content, post.AuthorID, post.AuthorName, formatTime(post.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("failed to insert post: %w", err)
		}
		return []storage.Change{storage.NewChange(storage.CollectionForumPosts, post.ID, storage.ChangeCreated)}, nil
	})
	if err != nil {
		return "", err
	}
	return post.ID, nil
}

func (s *Store) GetPost(id string) (models.ForumPost, error) {
	row := s.queryRow(`
		SELECT id, title, content, author_id, author_name, created_at, reply_count
		FROM forum_posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if err != nil {
		return models.ForumPost{}, notFound(err, "post", id)
	}
	return p, nil
}

func (s *Store) ListPosts() ([]models.ForumPost, error) {
	rows, err := s.query(`
		SELECT id, title, content, author_id, author_name, created_at, reply_count
		FROM forum_posts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.ForumPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CreateReply bumps the counter first so a missing post aborts before the insert
func (s *Store) CreateReply(postID string, reply models.ForumReply) (string, error) {
	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = now()
	}

	err := s.withTx(func(tx *sql.Tx) ([]storage.Change, error) {
		res, err := s.txExec(tx, "UPDATE forum_posts SET reply_count = reply_count + 1 WHERE id = ?", postID)
		if err != nil {
			return nil, fmt.Errorf("failed to increment reply count: %w", err)
		}
		if err := requireAffected(res, "post", postID); err != nil {
			return nil, err
		}

		_, err = s.txExec(tx, `
			INSERT INTO forum_replies (id, post_id, content, author_id, author_name, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			reply.ID, postID, reply.Content, reply.AuthorID, reply.AuthorName, formatTime(reply.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("failed to insert reply: %w", err)
		}
		return []storage.Change{storage.NewChange(storage.CollectionForumPosts, postID, storage.ChangeUpdated)}, nil
	})
	if err != nil {
		return "", err
	}
	return reply.ID, nil
}

func (s *Store) ListReplies(postID string) ([]models.ForumReply, error) {
	rows, err := s.query(`
		SELECT id, post_id, content, author_id, author_name, created_at
		FROM forum_replies WHERE post_id = ? ORDER BY created_at, id`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	defer rows.Close()

	replies := []models.ForumReply{}
	for rows.Next() {
		var r models.ForumReply
		var createdAt string
		if err := rows.Scan(&r.ID, &r.PostID, &r.Content, &r.AuthorID, &r.AuthorName, &createdAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

// CountReplies returns the number of reply rows for a post, for counter audits
func (s *Store) CountReplies(postID string) (int, error) {
	var n int
	if err := s.queryRow("SELECT COUNT(*) FROM forum_replies WHERE post_id = ?", postID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count replies: %w", err)
	}
	return n, nil
}

func scanPost(row rowScanner) (models.ForumPost, error) {
	var p models.ForumPost
	var createdAt string
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.AuthorName, &createdAt, &p.ReplyCount); err != nil {
		return models.ForumPost{}, err
	}
	var err error
	if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.ForumPost{}, err
	}
	return p, nil
}
