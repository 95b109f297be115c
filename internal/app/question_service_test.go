package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-runner/internal/app"
	"quiz-runner/internal/auth"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/memory"
	"quiz-runner/internal/trig"
)

func TestQuestionServiceHidesAnswers(t *testing.T) {
	ctx := context.Background()
	service, cred := newTestService(t)

	q, err := service.NextQuestion(ctx, app.QuestionRequest{Credential: cred, SessionID: "s1", Index: 1})
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if q.ID == "" || q.CorrectAnswer != "" {
		t.Fatalf("expected an id and no answer, got %+v", q)
	}
	if _, err := service.JudgeAnswer(ctx, app.AnswerRequest{Credential: cred, SessionID: "s1", QuestionID: q.ID, Choice: q.Options[0]}); err != nil {
		t.Fatalf("judge: %v", err)
	}
}

func TestQuestionServiceJudgesOnce(t *testing.T) {
	ctx := context.Background()
	authority := auth.NewAuthority("secret", time.Hour)
	token, _ := authority.Issue("u1", "student")
	cred := domain.Credential{Token: token}
	service := app.NewQuestionService(fixedGenerator{}, memory.NewAnswerStore(time.Minute), authority)

	q, err := service.NextQuestion(ctx, app.QuestionRequest{Credential: cred, SessionID: "s1", Index: 1})
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	v, err := service.JudgeAnswer(ctx, app.AnswerRequest{Credential: cred, SessionID: "s1", QuestionID: q.ID, Choice: "-1/2"})
	if err != nil || v.IsCorrect {
		t.Fatalf("expected wrong verdict, got %+v %v", v, err)
	}
	for _, opt := range q.Options {
		if _, err := service.JudgeAnswer(ctx, app.AnswerRequest{Credential: cred, SessionID: "s1", QuestionID: q.ID, Choice: opt}); !errors.Is(err, domain.ErrQuestionNotFound) {
			t.Fatalf("option %q judged twice: %v", opt, err)
		}
	}
}

func TestQuestionServiceRequiresCredential(t *testing.T) {
	ctx := context.Background()
	authority := auth.NewAuthority("secret", time.Minute)
	service := app.NewQuestionService(fixedGenerator{}, memory.NewAnswerStore(time.Minute), authority)

	if _, err := service.NextQuestion(ctx, app.QuestionRequest{SessionID: "s1", Index: 1}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for empty credential, got %v", err)
	}
	if _, err := service.JudgeAnswer(ctx, app.AnswerRequest{SessionID: "s1", QuestionID: "q1"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized judge without credential, got %v", err)
	}

	expired, _ := auth.NewAuthority("secret", time.Nanosecond).Issue("u1", "student")
	time.Sleep(2 * time.Millisecond)
	_, err := service.NextQuestion(ctx, app.QuestionRequest{Credential: domain.Credential{Token: expired}, SessionID: "s1", Index: 1})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}

func TestRevokedTokenHaltsRunningSession(t *testing.T) {
	authority := auth.NewAuthority("secret", time.Hour)
	token, _ := authority.Issue("u1", "student")
	verifier := &revocableVerifier{inner: authority}
	service := app.NewQuestionService(fixedGenerator{}, memory.NewAnswerStore(time.Minute), verifier)
	results := memory.NewResultLog()
	runner := app.NewRunner(service, results, app.WithClock(app.NewManualClock(time.Now())), app.WithDispatch(func(f func()) { f() }))

	cred := domain.Credential{Token: token, Subject: "u1"}
	if err := runner.Start(context.Background(), cred, app.Config{Mode: domain.ModeOpenEnded, SecondsPerQuestion: 10}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := runner.Submit("1/2"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	verifier.revoke()
	if err := runner.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	snap := runner.Snapshot()
	if !snap.Halted || !errors.Is(snap.Fault, domain.ErrUnauthorized) {
		t.Fatalf("expected halted session, got %+v", snap)
	}
	if err := runner.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	res := results.Results()
	if len(res) != 1 || res[0].TotalQuestions != 1 || res[0].CorrectAnswers != 1 {
		t.Fatalf("expected the answered question reported, got %+v", res)
	}
}

func TestQuestionServiceUnknownQuestion(t *testing.T) {
	ctx := context.Background()
	service, cred := newTestService(t)

	_, err := service.JudgeAnswer(ctx, app.AnswerRequest{Credential: cred, SessionID: "s1", QuestionID: "missing", Choice: "1"})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if _, err := service.NextQuestion(ctx, app.QuestionRequest{Credential: cred}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found without session id, got %v", err)
	}
}

func TestQuestionServiceDrivesRemoteJudging(t *testing.T) {
	service, cred := newTestService(t)
	cred.Subject = "u1"
	clock := app.NewManualClock(time.Now())
	log := memory.NewResultLog()
	runner := app.NewRunner(service, log, app.WithClock(clock), app.WithDispatch(func(f func()) { f() }))

	if err := runner.Start(context.Background(), cred, app.Config{
		Mode:               domain.ModeFixedLength,
		SecondsPerQuestion: 10,
		TotalQuestions:     1,
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := runner.Snapshot()
	clock.Advance(6 * time.Second)
	if err := runner.Submit(snap.Question.Options[0]); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := runner.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}

	results := log.Results()
	if len(results) != 1 || results[0].TotalQuestions != 1 || results[0].TimeSpent != 6 || results[0].Subject != "u1" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestPracticeQuestionCarriesAnswer(t *testing.T) {
	service, _ := newTestService(t)
	q := service.PracticeQuestion()
	if q.CorrectAnswer == "" || !q.HasOption(q.CorrectAnswer) {
		t.Fatalf("expected practice question with answer, got %+v", q)
	}
}

func newTestService(t *testing.T) (*app.QuestionService, domain.Credential) {
	t.Helper()
	authority := auth.NewAuthority("secret", time.Hour)
	token, err := authority.Issue("u1", "student")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	service := app.NewQuestionService(trig.NewGeneratorWithSeed(11), memory.NewAnswerStore(5*time.Minute), authority)
	return service, domain.Credential{Token: token}
}

// fixedGenerator always issues sin(30°).
type fixedGenerator struct{}

func (fixedGenerator) Generate() domain.Question {
	return domain.Question{Prompt: "sin(30°)", Options: []string{"1/2", "-1/2", "0", "1"}, CorrectAnswer: "1/2"}
}

type revocableVerifier struct {
	mu      sync.Mutex
	inner   *auth.Authority
	revoked bool
}

func (v *revocableVerifier) Verify(token string) (domain.Credential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.revoked {
		return domain.Credential{}, auth.ErrInvalidToken
	}
	return v.inner.Verify(token)
}

func (v *revocableVerifier) revoke() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.revoked = true
}
