package models

import (
	"time"

	"github.com/julianstephens/rehab/internal/constants"
)

// ChatSession groups an ordered conversation with the counselor
type ChatSession struct {
	ID        string    `json:"id" firestore:"-"`
	OwnerID   string    `json:"ownerId" firestore:"ownerId"`
	Counselor string    `json:"counselor,omitempty" firestore:"counselor,omitempty"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// ChatMessage is one append-only turn of a session
type ChatMessage struct {
	ID        string             `json:"id" firestore:"-"`
	SessionID string             `json:"sessionId" firestore:"-"`
	Role      constants.ChatRole `json:"role" firestore:"role"`
	Content   string             `json:"content" firestore:"content"`
	CreatedAt time.Time          `json:"createdAt" firestore:"createdAt"`
}
