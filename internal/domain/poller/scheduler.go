package poller

import (
	"context"
	"sync"
	"time"

	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/xcontext"
)

type State string

const (
	StateIdle         State = "idle"
	StateCountingDown State = "counting_down"
	StatePolling      State = "polling"
	StateBackingOff   State = "backing_off"
)

// Result reports how one poll run ended. A rate-limited run carries the
// moment the upstream window reopens; a zero ResetAt falls back to the
// nominal interval.
type Result struct {
	Err         error
	RateLimited bool
	ResetAt     time.Time
}

type PollFunc func(ctx context.Context) Result

// Scheduler drives periodic polling as an explicit state machine. It counts
// down to the next run, polls, and on a rate limit backs off until the
// upstream window reopens. The backoff anchor is persisted so a restart
// resumes an active backoff instead of hammering the API again.
type Scheduler struct {
	interval time.Duration
	poll     PollFunc
	store    BackoffStore

	mutex        sync.Mutex
	state        State
	timer        *time.Timer
	backoffUntil time.Time
	stopped      bool
}

func NewScheduler(interval time.Duration, poll PollFunc, store BackoffStore) *Scheduler {
	return &Scheduler{
		interval: interval,
		poll:     poll,
		store:    store,
		state:    StateIdle,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != StateIdle {
		return
	}

	until, ok, err := s.store.BackoffUntil(ctx)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot read the persisted backoff: %v", err)
	}

	if ok && time.Now().Before(until) {
		xcontext.Logger(ctx).Infof("Resuming backoff until %s", until.Format(time.RFC3339))
		s.backOffLocked(ctx, until)
		return
	}

	s.countDownLocked(ctx, s.interval)
}

// TriggerNow runs a poll immediately unless the scheduler is backing off,
// in which case the remaining wait is reported instead of a run.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	s.mutex.Lock()

	switch s.state {
	case StateBackingOff:
		remaining := time.Until(s.backoffUntil).Round(time.Second)
		s.mutex.Unlock()
		return errorx.New(errorx.RateLimited,
			"Rate limited by the platform, next poll in %s", remaining)
	case StatePolling:
		s.mutex.Unlock()
		return errorx.New(errorx.TooManyRequests, "A poll is already running")
	case StateIdle:
		s.mutex.Unlock()
		return errorx.New(errorx.Unavailable, "The poller is not running")
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.state = StatePolling
	s.mutex.Unlock()

	s.runPoll(ctx)
	return nil
}

func (s *Scheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.state = StateIdle
}

func (s *Scheduler) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

func (s *Scheduler) timerFired(ctx context.Context) {
	s.mutex.Lock()
	if s.stopped {
		s.mutex.Unlock()
		return
	}
	s.state = StatePolling
	s.mutex.Unlock()

	s.runPoll(ctx)
}

func (s *Scheduler) runPoll(ctx context.Context) {
	result := s.poll(ctx)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stopped {
		return
	}

	if result.RateLimited {
		until := result.ResetAt
		if until.IsZero() || !until.After(time.Now()) {
			until = time.Now().Add(s.interval)
		}

		xcontext.Logger(ctx).Warnf("Rate limited, backing off until %s", until.Format(time.RFC3339))
		s.backOffLocked(ctx, until)
		return
	}

	if result.Err != nil {
		xcontext.Logger(ctx).Warnf("Poll failed: %v", result.Err)
	}

	if err := s.store.Clear(ctx); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot clear the persisted backoff: %v", err)
	}

	s.backoffUntil = time.Time{}
	s.countDownLocked(ctx, s.interval)
}

func (s *Scheduler) countDownLocked(ctx context.Context, wait time.Duration) {
	s.state = StateCountingDown
	s.timer = time.AfterFunc(wait, func() { s.timerFired(ctx) })
}

func (s *Scheduler) backOffLocked(ctx context.Context, until time.Time) {
	s.state = StateBackingOff
	s.backoffUntil = until
	if err := s.store.SetBackoffUntil(ctx, until); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot persist the backoff: %v", err)
	}

	s.timer = time.AfterFunc(time.Until(until), func() { s.timerFired(ctx) })
}
