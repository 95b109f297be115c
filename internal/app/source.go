package app

import (
	"context"

	"quiz-runner/internal/domain"
)

// QuestionRequest identifies the turn a question is fetched for.
type QuestionRequest struct {
	Credential domain.Credential
	SessionID  string
	Index      int
	Mode       domain.Mode
}

// AnswerRequest carries one submitted choice to a judging source.
type AnswerRequest struct {
	Credential domain.Credential
	SessionID  string
	QuestionID string
	Choice     string
}

// QuestionSource serves one question per turn (remote service, offline generator, fixtures).
type QuestionSource interface {
	NextQuestion(ctx context.Context, req QuestionRequest) (domain.Question, error)
}

// AnswerJudge is implemented by sources that judge answers server-side.
// Sources without it must hand out questions carrying CorrectAnswer.
type AnswerJudge interface {
	JudgeAnswer(ctx context.Context, req AnswerRequest) (domain.Verdict, error)
}

// QuestionGenerator produces fresh questions including their correct answer.
type QuestionGenerator interface {
	Generate() domain.Question
}
