package session

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// Store wraps a gorilla cookie store bound to a single cookie name. It is
// used for the short-lived OAuth transaction cookie, so the defaults are
// HTTP-only, same-site lax, and a small max age.
type Store struct {
	name  string
	store *sessions.CookieStore
}

func NewCookieStore(name string, maxAge int, secure bool, keypairs ...[]byte) *Store {
	store := sessions.NewCookieStore(keypairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Store{name: name, store: store}
}

func (s *Store) Get(r *http.Request) (*sessions.Session, error) {
	return s.store.Get(r, s.name)
}

func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	return s.store.Save(r, w, session)
}

// Delete expires the cookie immediately. Transaction values are single-use,
// so every callback completion ends with a Delete.
func (s *Store) Delete(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	session.Options.MaxAge = -1
	session.Values = make(map[any]any)
	return s.store.Save(r, w, session)
}
