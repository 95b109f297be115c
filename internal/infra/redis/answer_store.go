package redis

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-runner/internal/domain"
)

// AnswerStore keeps issued answers in Redis, one hash per session:
// HSET quiz:{sessionID}:answers {questionID} {answer}
// Answers are removed when taken.
type AnswerStore struct {
	client *redis.Client
	ttl    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewAnswerStore(client *redis.Client, ttl time.Duration) *AnswerStore {
	return &AnswerStore{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *AnswerStore) Put(ctx context.Context, sessionID, questionID, answer string) error {
	key := s.answersKey(sessionID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, questionID, answer)
	if ttl := s.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Take reads and deletes the answer in one transaction, so each question is judged once.
func (s *AnswerStore) Take(ctx context.Context, sessionID, questionID string) (string, error) {
	key := s.answersKey(sessionID)
	pipe := s.client.TxPipeline()
	get := pipe.HGet(ctx, key, questionID)
	pipe.HDel(ctx, key, questionID)
	_, err := pipe.Exec(ctx)
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrQuestionNotFound
	}
	if err != nil {
		return "", err
	}
	return get.Val(), nil
}

func (s *AnswerStore) answersKey(sessionID string) string {
	return "quiz:" + sessionID + ":answers"
}

func (s *AnswerStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
