package poller

import (
	"context"
	"strconv"
	"time"

	"github.com/replydesk/backend/internal/domain"
)

// PollJob adapts the poll domain to the scheduler: a batch marked
// rate-limited becomes a backoff anchored at the reported reset time.
func PollJob(pollDomain domain.PollDomain) PollFunc {
	return func(ctx context.Context) Result {
		resp, err := pollDomain.PollAll(ctx)
		if err != nil {
			return Result{Err: err}
		}

		result := Result{RateLimited: resp.RateLimited}
		if resp.RateLimitResetTime != "" {
			if unix, err := strconv.ParseInt(resp.RateLimitResetTime, 10, 64); err == nil {
				result.ResetAt = time.Unix(unix, 0)
			}
		}

		return result
	}
}
