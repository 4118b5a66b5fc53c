package poller

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/replydesk/backend/pkg/xredis"
)

const backoffKey = "poller:backoff_until"

// BackoffStore persists the moment an active backoff ends, so a restarted
// process waits out the remainder instead of polling straight away.
type BackoffStore interface {
	SetBackoffUntil(ctx context.Context, until time.Time) error
	BackoffUntil(ctx context.Context) (time.Time, bool, error)
	Clear(ctx context.Context) error
}

type redisBackoffStore struct {
	redisClient xredis.Client
}

func NewRedisBackoffStore(redisClient xredis.Client) *redisBackoffStore {
	return &redisBackoffStore{redisClient: redisClient}
}

func (s *redisBackoffStore) SetBackoffUntil(ctx context.Context, until time.Time) error {
	// The key expires shortly after the backoff ends; a stale anchor is
	// useless by then.
	ttl := time.Until(until) + time.Minute
	return s.redisClient.Set(ctx, backoffKey, strconv.FormatInt(until.Unix(), 10), ttl)
}

func (s *redisBackoffStore) BackoffUntil(ctx context.Context) (time.Time, bool, error) {
	value, err := s.redisClient.Get(ctx, backoffKey)
	if errors.Is(err, xredis.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}

	return time.Unix(unix, 0), true, nil
}

func (s *redisBackoffStore) Clear(ctx context.Context) error {
	return s.redisClient.Del(ctx, backoffKey)
}

// InMemoryBackoffStore keeps the anchor in process memory. It does not
// survive a restart; use the redis store for that.
type InMemoryBackoffStore struct {
	mutex sync.Mutex
	until time.Time
	set   bool
}

func NewInMemoryBackoffStore() *InMemoryBackoffStore {
	return &InMemoryBackoffStore{}
}

func (s *InMemoryBackoffStore) SetBackoffUntil(_ context.Context, until time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.until = until
	s.set = true
	return nil
}

func (s *InMemoryBackoffStore) BackoffUntil(_ context.Context) (time.Time, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.until, s.set, nil
}

func (s *InMemoryBackoffStore) Clear(_ context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.until = time.Time{}
	s.set = false
	return nil
}
