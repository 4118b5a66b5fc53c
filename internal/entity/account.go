package entity

import (
	"database/sql"
	"time"
)

// Account is one linked platform identity. Token columns hold cipher blobs,
// never plaintext.
type Account struct {
	Base

	XUserID   string `gorm:"unique"`
	XUsername string

	IsConnected bool
	ConnectedAt time.Time

	EncryptedAccessToken  string
	EncryptedRefreshToken sql.NullString

	// EncryptedTokenSecret holds the OAuth 1.0a token secret, which is
	// needed to sign later requests. Always null for OAuth2 accounts.
	EncryptedTokenSecret sql.NullString

	// TokenExpiresAt is null for OAuth1 accounts, whose tokens do not expire.
	TokenExpiresAt sql.NullTime

	// OwnerID is the local user owning this account. Single-tenant installs
	// reuse the platform user id.
	OwnerID string `gorm:"index"`
}
