package entity

import (
	"database/sql"
)

const (
	ReplyStatusOpen   = "open"
	ReplyStatusClosed = "closed"
)

// Reply is a captured mention addressed to a monitored account. XPostID is
// the dedup key: polling upserts on it and never inserts twice.
type Reply struct {
	Base

	XPostID         string `gorm:"unique"`
	XAuthorID       string
	XAuthorUsername string

	// EncryptedText is the post text passed through the credential cipher.
	EncryptedText string

	InReplyToPostID string
	ConversationID  string

	Status   string `gorm:"default:open"`
	ClosedAt sql.NullTime

	// TargetUserID is the platform user id of the account the mention was
	// addressed to. It is the canonical per-account watermark key.
	TargetUserID   string `gorm:"index"`
	TargetUsername string

	Metadata Map
}
