package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"quiz-runner/internal/domain"
)

// AnswerStore keeps the correct answer of every issued question until it is
// taken or expires (in-memory, Redis, etc).
type AnswerStore interface {
	Put(ctx context.Context, sessionID, questionID, answer string) error
	// Take returns the answer once; later calls report domain.ErrQuestionNotFound.
	Take(ctx context.Context, sessionID, questionID string) (string, error)
}

// CredentialVerifier checks the token carried by a source call.
type CredentialVerifier interface {
	Verify(token string) (domain.Credential, error)
}

// QuestionService issues questions and judges answers server-side. It is both
// a QuestionSource and an AnswerJudge, so a Runner wired to it never sees the
// correct answer.
type QuestionService struct {
	generator QuestionGenerator
	answers   AnswerStore
	verifier  CredentialVerifier
	newID     func() string
}

// NewQuestionService builds the service. Every NextQuestion and JudgeAnswer
// call must carry a token that verifier accepts.
func NewQuestionService(generator QuestionGenerator, answers AnswerStore, verifier CredentialVerifier) *QuestionService {
	return &QuestionService{generator: generator, answers: answers, verifier: verifier, newID: uuid.NewString}
}

// NextQuestion generates a question, remembers its answer and returns the public part.
func (s *QuestionService) NextQuestion(ctx context.Context, req QuestionRequest) (domain.Question, error) {
	if err := s.authorize(req.Credential); err != nil {
		return domain.Question{}, err
	}
	if req.SessionID == "" {
		return domain.Question{}, fmt.Errorf("%w: missing session id", domain.ErrNotFound)
	}
	q := s.generator.Generate()
	if q.ID == "" {
		q.ID = s.newID()
	}
	if err := s.answers.Put(ctx, req.SessionID, q.ID, q.CorrectAnswer); err != nil {
		return domain.Question{}, fmt.Errorf("store answer: %w", err)
	}
	return q.Public(), nil
}

// JudgeAnswer compares a choice with the stored answer. A question is judged
// at most once.
func (s *QuestionService) JudgeAnswer(ctx context.Context, req AnswerRequest) (domain.Verdict, error) {
	if err := s.authorize(req.Credential); err != nil {
		return domain.Verdict{}, err
	}
	answer, err := s.answers.Take(ctx, req.SessionID, req.QuestionID)
	if err != nil {
		return domain.Verdict{}, err
	}
	return domain.Verdict{IsCorrect: req.Choice == answer}, nil
}

// PracticeQuestion returns a question with its answer for client-side judging.
func (s *QuestionService) PracticeQuestion() domain.Question {
	q := s.generator.Generate()
	if q.ID == "" {
		q.ID = s.newID()
	}
	return q
}

func (s *QuestionService) authorize(cred domain.Credential) error {
	if cred.Token == "" {
		return fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}
	if s.verifier == nil {
		return nil
	}
	if _, err := s.verifier.Verify(cred.Token); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return nil
}
