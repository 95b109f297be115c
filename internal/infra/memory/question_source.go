package memory

import (
	"context"
	"sync"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
)

// StaticSource serves a fixed list of questions in order, cycling when an
// open-ended session outruns it. Answers are judged locally by the engine.
type StaticSource struct {
	questions []domain.Question
}

func NewStaticSource(questions []domain.Question) *StaticSource {
	return &StaticSource{questions: questions}
}

func (s *StaticSource) NextQuestion(_ context.Context, req app.QuestionRequest) (domain.Question, error) {
	if len(s.questions) == 0 || req.Index < 1 {
		return domain.Question{}, domain.ErrNotFound
	}
	q := s.questions[(req.Index-1)%len(s.questions)]
	q.Options = append([]string(nil), q.Options...)
	return q, nil
}

// GeneratorSource is the offline practice source: every turn gets a freshly
// generated question carrying its own answer.
type GeneratorSource struct {
	generator app.QuestionGenerator

	mu     sync.Mutex
	served int
}

func NewGeneratorSource(generator app.QuestionGenerator) *GeneratorSource {
	return &GeneratorSource{generator: generator}
}

func (s *GeneratorSource) NextQuestion(ctx context.Context, _ app.QuestionRequest) (domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return domain.Question{}, err
	}
	s.mu.Lock()
	s.served++
	s.mu.Unlock()
	return s.generator.Generate(), nil
}

// Served reports how many questions were handed out.
func (s *GeneratorSource) Served() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.served
}
