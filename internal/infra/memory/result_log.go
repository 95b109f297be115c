package memory

import (
	"context"
	"sync"

	"quiz-runner/internal/domain"
)

// ResultLog is an in-memory reporter and result sink.
type ResultLog struct {
	mu      sync.RWMutex
	results []domain.Result
	notify  chan domain.Result
}

func NewResultLog() *ResultLog {
	return &ResultLog{notify: make(chan domain.Result, 8)}
}

// OnSessionComplete implements app.Reporter.
func (l *ResultLog) OnSessionComplete(result domain.Result) {
	l.mu.Lock()
	l.results = append(l.results, result)
	l.mu.Unlock()

	select {
	case l.notify <- result:
	default:
		// full: drop the oldest notification
		select {
		case <-l.notify:
		default:
		}
		select {
		case l.notify <- result:
		default:
		}
	}
}

// Record implements app.ResultSink.
func (l *ResultLog) Record(_ context.Context, result domain.Result) error {
	l.OnSessionComplete(result)
	return nil
}

// Completed delivers results as they are reported.
func (l *ResultLog) Completed() <-chan domain.Result {
	return l.notify
}

// Results returns every result in report order.
func (l *ResultLog) Results() []domain.Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Result(nil), l.results...)
}

// BySubject returns the results reported for one subject.
func (l *ResultLog) BySubject(subject string) []domain.Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.Result
	for _, r := range l.results {
		if r.Subject == subject {
			out = append(out, r)
		}
	}
	return out
}
