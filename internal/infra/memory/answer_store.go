package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-runner/internal/domain"
)

// AnswerStore keeps issued answers in process with a TTL, implementing app.AnswerStore.
type AnswerStore struct {
	ttl   time.Duration
	clock func() time.Time
	rnd   *rand.Rand

	mu        sync.Mutex
	entries   map[answerKey]cachedAnswer
	nextSweep time.Time
}

type answerKey struct {
	sessionID  string
	questionID string
}

type cachedAnswer struct {
	answer    string
	expiresAt time.Time
}

func NewAnswerStore(ttl time.Duration) *AnswerStore {
	return NewAnswerStoreWithClock(ttl, time.Now)
}

// NewAnswerStoreWithClock allows deterministic expiry in tests.
func NewAnswerStoreWithClock(ttl time.Duration, now func() time.Time) *AnswerStore {
	return &AnswerStore{
		ttl:     ttl,
		clock:   now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[answerKey]cachedAnswer),
	}
}

func (s *AnswerStore) Put(_ context.Context, sessionID, questionID, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.sweepLocked(now)
	s.entries[answerKey{sessionID, questionID}] = cachedAnswer{
		answer:    answer,
		expiresAt: now.Add(s.ttlWithJitterLocked()),
	}
	return nil
}

// Take returns the answer and forgets it, so each question is judged once.
func (s *AnswerStore) Take(_ context.Context, sessionID, questionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := answerKey{sessionID, questionID}
	entry, ok := s.entries[key]
	delete(s.entries, key)
	if !ok || !entry.expiresAt.After(s.clock()) {
		return "", domain.ErrQuestionNotFound
	}
	return entry.answer, nil
}

// Len reports how many answers are held, expired or not.
func (s *AnswerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweepLocked drops expired entries at most once per TTL.
func (s *AnswerStore) sweepLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for key, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, key)
		}
	}
	s.nextSweep = now.Add(s.ttl)
}

func (s *AnswerStore) ttlWithJitterLocked() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
