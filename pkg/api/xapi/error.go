package xapi

import "fmt"

// RateLimitError reports a 429 from the platform together with the reset
// time header (epoch seconds), when the provider sent one.
type RateLimitError struct {
	ResetAt string
}

func (e *RateLimitError) Error() string {
	if e.ResetAt == "" {
		return "rate limited"
	}

	return fmt.Sprintf("rate limited until %s", e.ResetAt)
}

// StatusError is any other non-2xx platform response. The provider body is
// logged by the endpoint, never surfaced to end users.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("invalid status code %d", e.Code)
}
