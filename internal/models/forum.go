package models

import "time"

// ForumPost is a community post. ReplyCount mirrors the number of replies.
type ForumPost struct {
	ID         string    `json:"id" firestore:"-"`
	Title      string    `json:"title" firestore:"title"`
	Content    string    `json:"content" firestore:"content"`
	AuthorID   string    `json:"authorId" firestore:"authorId"`
	AuthorName string    `json:"authorName" firestore:"authorName"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
	ReplyCount int       `json:"replyCount" firestore:"replyCount"`
}

// ForumReply belongs to exactly one post
type ForumReply struct {
	ID         string    `json:"id" firestore:"-"`
	PostID     string    `json:"postId" firestore:"-"`
	Content    string    `json:"content" firestore:"content"`
	AuthorID   string    `json:"authorId" firestore:"authorId"`
	AuthorName string    `json:"authorName" firestore:"authorName"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
}
