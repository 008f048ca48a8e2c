// Package forum is the community board: posts with replies and a reply
// counter kept in step by the store.
package forum

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/constants"
	apperrors "github.com/julianstephens/rehab/internal/errors"
	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/validation"
)

// ErrLoginRequired is returned when an anonymous caller tries to write
var ErrLoginRequired = apperrors.New(apperrors.KindUnauthorized, "you must be logged in to post")

type Service struct {
	store storage.Provider
}

func NewService(store storage.Provider) *Service {
	return &Service{store: store}
}

type PostInput struct {
	Title   string `json:"title" validate:"notblank,max=200"`
	Content string `json:"content" validate:"notblank,maxbytes"`
}

type ReplyInput struct {
	Content string `json:"content" validate:"notblank,maxbytes"`
}

// AuthorName is the name shown on a post or reply
func AuthorName(id auth.Identity) string {
	if name := strings.TrimSpace(id.DisplayName); name != "" {
		return name
	}
	return constants.AnonymousAuthor
}

func (s *Service) CreatePost(ctx context.Context, id auth.Identity, in PostInput) (models.ForumPost, error) {
	if !id.Valid() {
		return models.ForumPost{}, ErrLoginRequired
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(in); err != nil {
		return models.ForumPost{}, err
	}

	postID, err := s.store.CreatePost(models.ForumPost{
		Title:      in.Title,
		Content:    in.Content,
		AuthorID:   id.UserID,
		AuthorName: AuthorName(id),
	})
	if err != nil {
		return models.ForumPost{}, fmt.Errorf("failed to create post: %w", err)
	}
	return s.store.GetPost(postID)
}

func (s *Service) Reply(ctx context.Context, id auth.Identity, postID string, in ReplyInput) (models.ForumReply, error) {
	if !id.Valid() {
		return models.ForumReply{}, ErrLoginRequired
	}
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(in); err != nil {
		return models.ForumReply{}, err
	}

	reply := models.ForumReply{
		PostID:     postID,
		Content:    in.Content,
		AuthorID:   id.UserID,
		AuthorName: AuthorName(id),
		CreatedAt:  time.Now().UTC(),
	}
	replyID, err := s.store.CreateReply(postID, reply)
	if err != nil {
		return models.ForumReply{}, err
	}
	reply.ID = replyID
	return reply, nil
}

func (s *Service) List(ctx context.Context) ([]models.ForumPost, error) {
	return s.store.ListPosts()
}

func (s *Service) Get(ctx context.Context, postID string) (models.ForumPost, error) {
	return s.store.GetPost(postID)
}

func (s *Service) Replies(ctx context.Context, postID string) ([]models.ForumReply, error) {
	if _, err := s.store.GetPost(postID); err != nil {
		return nil, err
	}
	return s.store.ListReplies(postID)
}
