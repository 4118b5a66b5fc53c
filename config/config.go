package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	OAuth2Flow = "oauth2"
	OAuth1Flow = "oauth1"
)

type Configs struct {
	Env string `toml:"env"`

	ApiServer  ServerConfigs     `toml:"api_server"`
	Database   DatabaseConfigs   `toml:"database"`
	Redis      RedisConfigs      `toml:"redis"`
	Auth       AuthConfigs       `toml:"auth"`
	Session    SessionConfigs    `toml:"session"`
	Encryption EncryptionConfigs `toml:"encryption"`
	XApi       XApiConfigs       `toml:"x_api"`
	Poll       PollConfigs       `toml:"poll"`
}

func (c Configs) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

type ServerConfigs struct {
	Host           string   `toml:"host"`
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type DatabaseConfigs struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type RedisConfigs struct {
	Addr string `toml:"addr"`
}

type AuthConfigs struct {
	// Flow selects the handshake variant: "oauth2" (authorization code with
	// PKCE) or "oauth1" (three-legged OAuth 1.0a).
	Flow string `toml:"flow"`

	CallbackURL string `toml:"callback_url"`
	AppURL      string `toml:"app_url"`

	// Transaction cookie holding state and code verifier (or the OAuth1
	// request token secret) between the authorize redirect and the callback.
	TransactionCookie string `toml:"transaction_cookie"`
	TransactionMaxAge int    `toml:"transaction_max_age"`
	TransactionSecret string `toml:"transaction_secret"`

	OAuth2 OAuth2Configs `toml:"oauth2"`
	OAuth1 OAuth1Configs `toml:"oauth1"`
}

type OAuth2Configs struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	AuthorizeURL string   `toml:"authorize_url"`
	Scopes       []string `toml:"scopes"`

	// RotateRefreshToken treats every refresh response as a rotation: when
	// the provider omits a new refresh token, the stored one is cleared
	// instead of reused.
	RotateRefreshToken bool `toml:"rotate_refresh_token"`
}

type OAuth1Configs struct {
	ConsumerKey     string `toml:"consumer_key"`
	ConsumerSecret  string `toml:"consumer_secret"`
	RequestTokenURL string `toml:"request_token_url"`
	AuthenticateURL string `toml:"authenticate_url"`
	AccessTokenURL  string `toml:"access_token_url"`
}

type SessionConfigs struct {
	TokenName  string   `toml:"token_name"`
	Expiration Duration `toml:"expiration"`
}

type EncryptionConfigs struct {
	Secret string `toml:"secret"`
}

type XApiConfigs struct {
	// Endpoint is the base URL of the platform REST API.
	Endpoint string `toml:"endpoint"`
}

type PollConfigs struct {
	Interval   Duration `toml:"interval"`
	MaxResults int      `toml:"max_results"`
}

// Duration makes time.Duration decodable from toml strings like "15m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = parsed
	return nil
}

// Load reads the optional toml file, applies environment overrides, and
// validates required secrets. The process must not start without an
// encryption secret.
func Load(path string) (Configs, error) {
	cfg := defaultConfigs()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Configs{}, err
		}
	}

	applyEnv(&cfg)

	if cfg.Encryption.Secret == "" {
		return Configs{}, errors.New("encryption secret is required (ENCRYPTION_KEY)")
	}

	if cfg.Auth.Flow != OAuth2Flow && cfg.Auth.Flow != OAuth1Flow {
		return Configs{}, fmt.Errorf("unknown auth flow %q", cfg.Auth.Flow)
	}

	return cfg, nil
}

func defaultConfigs() Configs {
	return Configs{
		Env: "local",
		ApiServer: ServerConfigs{
			Host: "localhost",
			Port: "8080",
		},
		Auth: AuthConfigs{
			Flow:              OAuth2Flow,
			TransactionCookie: "oauth_transaction",
			TransactionMaxAge: 600,
			OAuth2: OAuth2Configs{
				AuthorizeURL: "https://x.com/i/oauth2/authorize",
				Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			},
			OAuth1: OAuth1Configs{
				RequestTokenURL: "https://api.x.com/oauth/request_token",
				AuthenticateURL: "https://api.x.com/oauth/authenticate",
				AccessTokenURL:  "https://api.x.com/oauth/access_token",
			},
		},
		Session: SessionConfigs{
			TokenName:  "session_token",
			Expiration: Duration{30 * 24 * time.Hour},
		},
		XApi: XApiConfigs{
			Endpoint: "https://api.x.com",
		},
		Poll: PollConfigs{
			Interval:   Duration{15 * time.Minute},
			MaxResults: 10,
		},
	}
}

func applyEnv(cfg *Configs) {
	setIfPresent(&cfg.Env, "ENV")
	setIfPresent(&cfg.ApiServer.Port, "PORT")
	setIfPresent(&cfg.Database.Host, "DB_HOST")
	setIfPresent(&cfg.Database.Port, "DB_PORT")
	setIfPresent(&cfg.Database.Database, "DB_DATABASE")
	setIfPresent(&cfg.Database.User, "DB_USER")
	setIfPresent(&cfg.Database.Password, "DB_PASSWORD")
	setIfPresent(&cfg.Redis.Addr, "REDIS_ADDR")
	setIfPresent(&cfg.Encryption.Secret, "ENCRYPTION_KEY")
	setIfPresent(&cfg.Auth.Flow, "AUTH_FLOW")
	setIfPresent(&cfg.Auth.CallbackURL, "AUTH_CALLBACK_URL")
	setIfPresent(&cfg.Auth.AppURL, "AUTH_APP_URL")
	setIfPresent(&cfg.Auth.TransactionSecret, "AUTH_TRANSACTION_SECRET")
	setIfPresent(&cfg.Auth.OAuth2.ClientID, "X_CLIENT_ID")
	setIfPresent(&cfg.Auth.OAuth2.ClientSecret, "X_CLIENT_SECRET")
	setIfPresent(&cfg.Auth.OAuth1.ConsumerKey, "X_CONSUMER_KEY")
	setIfPresent(&cfg.Auth.OAuth1.ConsumerSecret, "X_CONSUMER_SECRET")

	if scopes := os.Getenv("X_SCOPES"); scopes != "" {
		cfg.Auth.OAuth2.Scopes = strings.Fields(scopes)
	}
}

func setIfPresent(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}
