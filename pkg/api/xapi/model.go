package xapi

// TokenResponse is the body of a successful token exchange or refresh.
type TokenResponse struct {
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`
	TokenType    string `mapstructure:"token_type"`
	ExpiresIn    int    `mapstructure:"expires_in"`
}

type User struct {
	ID       string `mapstructure:"id"`
	Username string `mapstructure:"username"`
	Name     string `mapstructure:"name"`
}

type Post struct {
	ID              string `mapstructure:"id"`
	Text            string `mapstructure:"text"`
	AuthorID        string `mapstructure:"author_id"`
	ConversationID  string `mapstructure:"conversation_id"`
	CreatedAt       string `mapstructure:"created_at"`
	InReplyToUserID string `mapstructure:"in_reply_to_user_id"`
}

// SearchResult carries the matched posts plus the expanded author side-table.
type SearchResult struct {
	Posts []Post
	Users []User
}

// AuthorUsername resolves an author id against the included users,
// defaulting to "unknown" when the expansion did not include it.
func (r SearchResult) AuthorUsername(authorID string) string {
	for _, user := range r.Users {
		if user.ID == authorID {
			return user.Username
		}
	}

	return "unknown"
}

// OAuth1AccessToken is the parsed url-encoded access-token response of the
// OAuth 1.0a flow.
type OAuth1AccessToken struct {
	Token       string
	TokenSecret string
	UserID      string
	ScreenName  string
}
