package api

import (
	"net/url"
	"strings"
)

// PercentEncode escapes per RFC 3986, which OAuth 1.0a signing requires:
// spaces become %20, never '+'.
func PercentEncode(s string) string {
	s = url.QueryEscape(s)
	return strings.ReplaceAll(s, "+", "%20")
}
