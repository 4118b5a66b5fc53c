package model

import "net/http"

type PollRequest struct{}

type AccountPollResult struct {
	Username   string `json:"username"`
	Success    bool   `json:"success"`
	NewReplies int    `json:"newReplies"`
	Error      string `json:"error,omitempty"`
}

type PollResponse struct {
	Success            bool                `json:"success"`
	TotalNewReplies    int                 `json:"totalNewReplies"`
	AccountResults     []AccountPollResult `json:"accountResults"`
	Message            string              `json:"message"`
	RateLimited        bool                `json:"rateLimited,omitempty"`
	RateLimitResetTime string              `json:"rateLimitResetTime,omitempty"`
}

// StatusCode makes a rate-limited batch answer with 429 so the client
// scheduler backs off instead of retrying.
func (r *PollResponse) StatusCode() int {
	if r.RateLimited {
		return http.StatusTooManyRequests
	}

	return http.StatusOK
}
