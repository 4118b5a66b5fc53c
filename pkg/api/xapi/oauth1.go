package xapi

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/replydesk/backend/pkg/api"
	"github.com/replydesk/backend/pkg/crypto"
)

// OAuth1Signer produces HMAC-SHA1 Authorization headers for the OAuth 1.0a
// three-legged flow. The signature base string is
// METHOD&enc(url)&enc(sorted-param-string); parameter order is significant,
// so the encoding sorts deterministically.
type OAuth1Signer struct {
	ConsumerKey    string
	ConsumerSecret string

	// nonce and timestamp override the generated values in tests.
	nonce     string
	timestamp string
}

func (s *OAuth1Signer) AuthorizationHeader(
	method, rawURL string, extra api.Parameter, token, tokenSecret string,
) (string, error) {
	nonce := s.nonce
	if nonce == "" {
		var err error
		nonce, err = crypto.RandomURLSafe(16)
		if err != nil {
			return "", err
		}
	}

	timestamp := s.timestamp
	if timestamp == "" {
		timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	}

	params := api.Parameter{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        timestamp,
		"oauth_version":          "1.0",
	}
	for key, value := range extra {
		params[key] = value
	}
	if token != "" {
		params["oauth_token"] = token
	}

	params["oauth_signature"] = s.signature(method, rawURL, params, tokenSecret)

	var keys []string
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var pairs []string
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf(`%s="%s"`, api.PercentEncode(key), api.PercentEncode(params[key])))
	}

	return "OAuth " + strings.Join(pairs, ", "), nil
}

// signature signs with consumer secret & token secret; the token secret half
// is empty on the request-token leg.
func (s *OAuth1Signer) signature(method, rawURL string, params api.Parameter, tokenSecret string) string {
	base := strings.Join([]string{
		method,
		api.PercentEncode(rawURL),
		api.PercentEncode(params.Encode()),
	}, "&")

	signingKey := api.PercentEncode(s.ConsumerSecret) + "&" + api.PercentEncode(tokenSecret)
	return crypto.HMACBase64(sha1.New, []byte(base), []byte(signingKey))
}
