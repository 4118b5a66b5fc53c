package model

import "time"

type Reply struct {
	XPostID         string    `json:"xPostId"`
	AuthorID        string    `json:"authorId"`
	AuthorUsername  string    `json:"authorUsername"`
	Text            string    `json:"text"`
	InReplyToPostID string    `json:"inReplyToPostId"`
	ConversationID  string    `json:"conversationId"`
	Status          string    `json:"status"`
	TargetUsername  string    `json:"targetUsername"`
	CreatedAt       time.Time `json:"createdAt"`
}

type GetRepliesRequest struct{}

type GetRepliesResponse struct {
	Replies []Reply `json:"replies"`
}

type SendReplyRequest struct {
	PostID string `json:"postId"`
	Text   string `json:"text"`
}

type SendReplyResponse struct {
	Success bool   `json:"success"`
	XPostID string `json:"xPostId"`
}

type ClearRepliesRequest struct{}

type ClearRepliesResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}
