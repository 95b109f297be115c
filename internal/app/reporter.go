package app

import (
	"context"
	"log"
	"time"

	"quiz-runner/internal/domain"
)

// Reporter receives the final result of a session exactly once.
type Reporter interface {
	OnSessionComplete(result domain.Result)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(result domain.Result)

func (f ReporterFunc) OnSessionComplete(result domain.Result) { f(result) }

// MultiReporter fans a result out to every reporter in order. Nil entries are skipped.
type MultiReporter []Reporter

func (m MultiReporter) OnSessionComplete(result domain.Result) {
	for _, r := range m {
		if r != nil {
			r.OnSessionComplete(result)
		}
	}
}

// ResultSink persists or forwards a result and may fail.
type ResultSink interface {
	Record(ctx context.Context, result domain.Result) error
}

type sinkReporter struct {
	timeout time.Duration
	sinks   []ResultSink
}

// SinkReporter adapts fallible sinks to the Reporter contract. Sink failures are logged, never returned.
func SinkReporter(timeout time.Duration, sinks ...ResultSink) Reporter {
	return &sinkReporter{timeout: timeout, sinks: sinks}
}

func (r *sinkReporter) OnSessionComplete(result domain.Result) {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	for _, sink := range r.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, result); err != nil {
			log.Printf("record result %s: %v", result.SessionID, err)
		}
	}
}
