package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/replydesk/backend/config"
	"github.com/replydesk/backend/pkg/logger"
	"github.com/replydesk/backend/pkg/xcontext"
	"gorm.io/gorm"
)

func NewConfigs() config.Configs {
	return config.Configs{
		Env: "test",
		Auth: config.AuthConfigs{
			Flow:              config.OAuth2Flow,
			CallbackURL:       "http://localhost:8080/auth/callback",
			AppURL:            "http://localhost:3000",
			TransactionCookie: "oauth_transaction",
			TransactionMaxAge: 600,
			TransactionSecret: "transaction-secret",
			OAuth2: config.OAuth2Configs{
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				AuthorizeURL: "https://provider.example/authorize",
				Scopes:       []string{"tweet.read", "users.read", "offline.access"},
			},
			OAuth1: config.OAuth1Configs{
				ConsumerKey:    "consumer-key",
				ConsumerSecret: "consumer-secret",
			},
		},
		Session: config.SessionConfigs{
			TokenName:  "session_token",
			Expiration: config.Duration{Duration: 30 * 24 * time.Hour},
		},
		Encryption: config.EncryptionConfigs{Secret: "test-encryption-secret"},
		Poll: config.PollConfigs{
			Interval:   config.Duration{Duration: 15 * time.Minute},
			MaxResults: 10,
		},
	}
}

func NewContext(t *testing.T, db *gorm.DB) context.Context {
	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, NewConfigs())
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	if db != nil {
		ctx = xcontext.WithDB(ctx, db)
	}

	return ctx
}
