package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-runner/internal/domain"
)

// ResultRecorder stores completed sessions in the practices table.
type ResultRecorder struct {
	pool *pgxpool.Pool
}

func NewResultRecorder(pool *pgxpool.Pool) *ResultRecorder {
	return &ResultRecorder{pool: pool}
}

// Record implements app.ResultSink. Recording the same session twice is a no-op.
func (r *ResultRecorder) Record(ctx context.Context, result domain.Result) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO practices (session_id, subject, mode, correct, count, time_spent, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO NOTHING`,
		result.SessionID, result.Subject, string(result.Mode),
		result.CorrectAnswers, result.TotalQuestions, result.TimeSpent, result.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert practice: %w", err)
	}
	return nil
}

// Recent loads the latest practices of a subject, newest first.
func (r *ResultRecorder) Recent(ctx context.Context, subject string, limit int) ([]domain.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT session_id, subject, mode, correct, count, time_spent, finished_at
		FROM practices WHERE subject=$1 ORDER BY finished_at DESC LIMIT $2`, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("load practices: %w", err)
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var res domain.Result
		var mode string
		if err := rows.Scan(&res.SessionID, &res.Subject, &mode, &res.CorrectAnswers,
			&res.TotalQuestions, &res.TimeSpent, &res.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan practice: %w", err)
		}
		res.Mode = domain.Mode(mode)
		out = append(out, res)
	}
	return out, rows.Err()
}
