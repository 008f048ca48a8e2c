package storage

import (
	"fmt"
	"time"
)

// Collection names a group of documents that can be watched
type Collection string

const (
	CollectionProfiles   Collection = "profiles"
	CollectionChats      Collection = "chats"
	CollectionForumPosts Collection = "forum_posts"
)

// ParseCollection validates a collection name from user input
func ParseCollection(s string) (Collection, error) {
	switch c := Collection(s); c {
	case CollectionProfiles, CollectionChats, CollectionForumPosts:
		return c, nil
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

// Ref points at one document, or at a whole collection when ID is empty.
// For chats the ID is the session id and covers its messages.
type Ref struct {
	Collection Collection `json:"collection"`
	ID         string     `json:"id,omitempty"`
}

// Matches reports whether a change to other should be delivered to a watcher of r
func (r Ref) Matches(other Ref) bool {
	if r.Collection != other.Collection {
		return false
	}
	return r.ID == "" || r.ID == other.ID
}

// ChangeKind says what happened to the document
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Change is a notification that a document was written. It carries no
// document body; watchers re-read what they need.
type Change struct {
	Ref  Ref        `json:"ref"`
	Kind ChangeKind `json:"kind"`
	At   time.Time  `json:"at"`
}

// NewChange stamps a change with the current time
func NewChange(c Collection, id string, kind ChangeKind) Change {
	return Change{Ref: Ref{Collection: c, ID: id}, Kind: kind, At: time.Now().UTC()}
}
