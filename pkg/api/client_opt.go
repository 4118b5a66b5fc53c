package api

import (
	"net/http"
)

type oauth2Opt struct {
	token string
}

func OAuth2(prefix, token string) *oauth2Opt {
	return &oauth2Opt{token: prefix + " " + token}
}

func (opt *oauth2Opt) Do(req *http.Request) {
	req.Header.Set("Authorization", opt.token)
}

type basicAuthOpt struct {
	username string
	password string
}

// BasicAuth authenticates with client credentials, as the token and revoke
// endpoints require.
func BasicAuth(username, password string) *basicAuthOpt {
	return &basicAuthOpt{username: username, password: password}
}

func (opt *basicAuthOpt) Do(req *http.Request) {
	req.SetBasicAuth(opt.username, opt.password)
}

type oauth1Opt struct {
	header string
}

// OAuth1 attaches a pre-computed OAuth 1.0a Authorization header.
func OAuth1(header string) *oauth1Opt {
	return &oauth1Opt{header: header}
}

func (opt *oauth1Opt) Do(req *http.Request) {
	req.Header.Set("Authorization", opt.header)
}
