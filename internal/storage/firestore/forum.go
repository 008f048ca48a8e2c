package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/julianstephens/rehab/internal/models"
)

func (s *Store) CreatePost(post models.ForumPost) (string, error) {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.ReplyCount = 0

	ctx, cancel := s.opCtx()
	defer cancel()

	ref := s.posts().NewDoc()
	if post.ID != "" {
		ref = s.posts().Doc(post.ID)
	}
	if _, err := ref.Create(ctx, post); err != nil {
		return "", mapErr(err, "post", ref.ID)
	}
	return ref.ID, nil
}

func (s *Store) GetPost(id string) (models.ForumPost, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	doc, err := s.posts().Doc(id).Get(ctx)
	if err != nil {
		return models.ForumPost{}, mapErr(err, "post", id)
	}
	return decodePost(doc)
}

func (s *Store) ListPosts() ([]models.ForumPost, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	posts := []models.ForumPost{}
	err := eachDoc(s.posts().OrderBy("createdAt", firestore.Desc).Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		p, err := decodePost(doc)
		if err != nil {
			return err
		}
		posts = append(posts, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// CreateReply writes the reply and bumps replyCount in one transaction
func (s *Store) CreateReply(postID string, reply models.ForumReply) (string, error) {
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := s.opCtx()
	defer cancel()

	postRef := s.posts().Doc(postID)
	replyRef := postRef.Collection(colReplies).NewDoc()
	if reply.ID != "" {
		replyRef = postRef.Collection(colReplies).Doc(reply.ID)
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(postRef); err != nil {
			return mapErr(err, "post", postID)
		}
		if err := tx.Create(replyRef, reply); err != nil {
			return err
		}
		return tx.Update(postRef, []firestore.Update{{Path: "replyCount", Value: firestore.Increment(1)}})
	})
	if err != nil {
		return "", err
	}
	return replyRef.ID, nil
}

func (s *Store) ListReplies(postID string) ([]models.ForumReply, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	replies := []models.ForumReply{}
	q := s.posts().Doc(postID).Collection(colReplies).OrderBy("createdAt", firestore.Asc)
	err := eachDoc(q.Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		var r models.ForumReply
		if err := doc.DataTo(&r); err != nil {
			return fmt.Errorf("failed to decode reply %s: %w", doc.Ref.ID, err)
		}
		r.ID = doc.Ref.ID
		r.PostID = postID
		replies = append(replies, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	return replies, nil
}

// CountReplies counts reply documents for a post, for counter audits
func (s *Store) CountReplies(postID string) (int, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	n := 0
	it := s.posts().Doc(postID).Collection(colReplies).Select().Documents(ctx)
	err := eachDoc(it, func(*firestore.DocumentSnapshot) error {
		n++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count replies: %w", err)
	}
	return n, nil
}

func decodePost(doc *firestore.DocumentSnapshot) (models.ForumPost, error) {
	var p models.ForumPost
	if err := doc.DataTo(&p); err != nil {
		return models.ForumPost{}, fmt.Errorf("failed to decode post %s: %w", doc.Ref.ID, err)
	}
	p.ID = doc.Ref.ID
	return p, nil
}
