package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-runner/internal/domain"
)

const (
	// ResultsChannel receives every completed session as JSON.
	ResultsChannel = "quiz:results"
	historyLimit   = 20
)

// ResultReporter publishes completed sessions and keeps a capped per-subject history:
//
//	PUBLISH quiz:results {json}
//	LPUSH   quiz:results:{subject} {json}  (trimmed to the most recent 20)
type ResultReporter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultReporter(client *redis.Client, ttl time.Duration) *ResultReporter {
	return &ResultReporter{client: client, ttl: ttl}
}

// Record implements app.ResultSink.
func (r *ResultReporter) Record(ctx context.Context, result domain.Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Publish(ctx, ResultsChannel, body)
	if result.Subject != "" {
		key := r.historyKey(result.Subject)
		pipe.LPush(ctx, key, body)
		pipe.LTrim(ctx, key, 0, historyLimit-1)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns the latest results of a subject, newest first.
func (r *ResultReporter) Recent(ctx context.Context, subject string, limit int) ([]domain.Result, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	raw, err := r.client.LRange(ctx, r.historyKey(subject), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Result, 0, len(raw))
	for _, item := range raw {
		var res domain.Result
		if err := json.Unmarshal([]byte(item), &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *ResultReporter) historyKey(subject string) string {
	return "quiz:results:" + subject
}
