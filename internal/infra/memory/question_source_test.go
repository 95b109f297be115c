package memory

import (
	"context"
	"testing"
	"time"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/trig"
)

func TestStaticSourceCycles(t *testing.T) {
	src := NewStaticSource(sampleQuestions())
	ctx := context.Background()

	for idx, want := range map[int]string{1: "q1", 2: "q2", 3: "q1"} {
		q, err := src.NextQuestion(ctx, app.QuestionRequest{Index: idx})
		if err != nil {
			t.Fatalf("index %d: %v", idx, err)
		}
		if q.ID != want {
			t.Fatalf("index %d: expected %s, got %s", idx, want, q.ID)
		}
	}
	if _, err := NewStaticSource(nil).NextQuestion(ctx, app.QuestionRequest{Index: 1}); err != domain.ErrNotFound {
		t.Fatalf("expected not found for empty source, got %v", err)
	}
}

func TestGeneratorSourceDrivesLocalJudging(t *testing.T) {
	src := NewGeneratorSource(trig.NewGeneratorWithSeed(3))
	log := NewResultLog()
	clock := app.NewManualClock(time.Now())
	runner := app.NewRunner(src, log, app.WithClock(clock), app.WithDispatch(func(f func()) { f() }))

	if err := runner.Start(context.Background(), domain.Credential{Subject: "student-7"}, app.Config{
		Mode:               domain.ModeFixedLength,
		SecondsPerQuestion: 10,
		TotalQuestions:     2,
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 2; i++ {
		snap := runner.Snapshot()
		if snap.Question == nil || snap.Question.CorrectAnswer != "" {
			t.Fatalf("snapshot must expose the question without its answer: %+v", snap.Question)
		}
		clock.Advance(time.Second)
		// Submitting every option in turn: only the first is accepted.
		for _, opt := range snap.Question.Options {
			if err := runner.Submit(opt); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
		if err := runner.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}

	results := log.BySubject("student-7")
	if len(results) != 1 || results[0].TotalQuestions != 2 || results[0].TimeSpent != 2 {
		t.Fatalf("unexpected results %+v", results)
	}
	if src.Served() != 2 {
		t.Fatalf("expected 2 questions served, got %d", src.Served())
	}
	select {
	case <-log.Completed():
	default:
		t.Fatalf("expected completion notification")
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Prompt: "sin(90°)", Options: []string{"0", "1", "-1"}, CorrectAnswer: "1"},
		{ID: "q2", Prompt: "cos(pi)", Options: []string{"0", "1", "-1"}, CorrectAnswer: "-1"},
	}
}
