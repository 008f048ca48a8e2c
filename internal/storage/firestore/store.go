// Package firestore stores rehab data in Cloud Firestore. Profiles embed
// their consumption log and reasons, forum replies and chat messages live
// in subcollections, and Watch is served by snapshot listeners.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/julianstephens/rehab/internal/storage"
)

// Scheme prefixes a --config value that selects this backend
const Scheme = "firestore://"

const (
	colProfiles = string(storage.CollectionProfiles)
	colPosts    = string(storage.CollectionForumPosts)
	colChats    = string(storage.CollectionChats)
	colReplies  = "replies"
	colMessages = "messages"

	opTimeout = 15 * time.Second
)

type Store struct {
	projectID string
	opts      []option.ClientOption
	client    *firestore.Client
}

var _ storage.Provider = (*Store)(nil)

// New returns a store for projectID. opts are passed to the client, e.g.
// option.WithCredentialsFile.
func New(projectID string, opts ...option.ClientOption) *Store {
	return &Store{projectID: projectID, opts: opts}
}

// ProjectFromConfig extracts the project id from a firestore:// config value
func ProjectFromConfig(cfg string) (string, bool) {
	if !strings.HasPrefix(cfg, Scheme) {
		return "", false
	}
	project := strings.Trim(strings.TrimPrefix(cfg, Scheme), "/")
	return project, project != ""
}

func (s *Store) connect() error {
	if s.client != nil {
		return nil
	}
	ctx, cancel := s.opCtx()
	defer cancel()

	client, err := firestore.NewClient(ctx, s.projectID, s.opts...)
	if err != nil {
		return fmt.Errorf("failed to create firestore client: %w", err)
	}
	s.client = client
	return nil
}

// Init connects. Firestore is schemaless, so there is nothing to migrate.
func (s *Store) Init() error {
	return s.connect()
}

func (s *Store) Load() error {
	return s.connect()
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *Store) GetConfigPath() string {
	return Scheme + s.projectID
}

func (s *Store) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func (s *Store) profiles() *firestore.CollectionRef { return s.client.Collection(colProfiles) }
func (s *Store) posts() *firestore.CollectionRef    { return s.client.Collection(colPosts) }
func (s *Store) chats() *firestore.CollectionRef    { return s.client.Collection(colChats) }

// mapErr converts gRPC status codes into storage sentinels
func mapErr(err error, what, id string) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s %q: %w", what, id, storage.ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s %q: %w", what, id, storage.ErrAlreadyExists)
	}
	return err
}

// eachDoc walks an iterator until iterator.Done
func eachDoc(it *firestore.DocumentIterator, fn func(*firestore.DocumentSnapshot) error) error {
	defer it.Stop()
	for {
		doc, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}
