package app

import (
	"errors"
	"fmt"
	"time"

	"quiz-runner/internal/domain"
)

// State is a step of the quiz session lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateAwaitingAnswer
	StateFeedback
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateFeedback:
		return "feedback"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the parameters a session is started with.
type Config struct {
	Mode               domain.Mode `json:"mode"`
	SecondsPerQuestion int         `json:"secondsPerQuestion"`
	TotalQuestions     int         `json:"totalQuestions,omitempty"`
}

// Validate rejects configurations before any state change.
func (c Config) Validate() error {
	switch c.Mode {
	case domain.ModeFixedLength, domain.ModeOpenEnded:
	default:
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidConfiguration, c.Mode)
	}
	if c.SecondsPerQuestion <= 0 {
		return fmt.Errorf("%w: secondsPerQuestion must be positive, got %d", domain.ErrInvalidConfiguration, c.SecondsPerQuestion)
	}
	if c.Mode == domain.ModeFixedLength && c.TotalQuestions < 1 {
		return fmt.Errorf("%w: fixed-length sessions need totalQuestions >= 1, got %d", domain.ErrInvalidConfiguration, c.TotalQuestions)
	}
	return nil
}

// Turn identifies one question fetch. Completions carrying an old turn are discarded.
type Turn struct {
	SessionID string
	Seq       uint64
}

// Submission is an answer waiting for its verdict.
type Submission struct {
	Turn       Turn
	QuestionID string
	Choice     string
	// Answer is the question's own correct answer, empty when the source judges remotely.
	Answer   string
	Consumed int
}

// Session is the quiz state machine. It performs no I/O and owns no timers:
// fetch results, verdicts and countdown ticks are fed in as events.
// The zero value is an idle session. Session is not safe for concurrent use.
type Session struct {
	id        string
	subject   string
	cfg       Config
	state     State
	seq       uint64
	index     int
	remaining int
	question  *domain.Question
	pending   *Submission
	history   []domain.Outcome
	fault     error
	halted    bool
	result    *domain.Result
}

// Start begins a new session and returns the turn of question #1.
// A session can be restarted once terminated or while its fetch is faulted.
func (s *Session) Start(id, subject string, cfg Config) (Turn, error) {
	if err := cfg.Validate(); err != nil {
		return Turn{}, err
	}
	switch s.state {
	case StateIdle, StateTerminated:
	case StateLoading:
		if s.fault == nil {
			return Turn{}, fmt.Errorf("%w: session %s is loading", domain.ErrInvalidTransition, s.id)
		}
	default:
		return Turn{}, fmt.Errorf("%w: session %s is %s", domain.ErrInvalidTransition, s.id, s.state)
	}
	if cfg.Mode == domain.ModeOpenEnded {
		cfg.TotalQuestions = 0
	}
	*s = Session{
		id:      id,
		subject: subject,
		cfg:     cfg,
		state:   StateLoading,
		seq:     1,
		index:   1,
	}
	return s.turn(), nil
}

// QuestionLoaded applies a fetched question. It reports false for stale completions.
func (s *Session) QuestionLoaded(t Turn, q domain.Question) (bool, error) {
	if !s.current(t) || s.state != StateLoading || s.fault != nil {
		return false, nil
	}
	if err := q.Validate(); err != nil {
		s.fault = fmt.Errorf("%w: %w", domain.ErrQuestionFetchFailed, err)
		return true, s.fault
	}
	q.Options = append([]string(nil), q.Options...)
	s.question = &q
	s.remaining = s.cfg.SecondsPerQuestion
	s.pending = nil
	s.state = StateAwaitingAnswer
	return true, nil
}

// QuestionFailed records a fetch failure. The session stays in Loading.
func (s *Session) QuestionFailed(t Turn, err error) (bool, error) {
	if !s.current(t) || s.state != StateLoading || s.fault != nil {
		return false, nil
	}
	// Unauthorized is terminal: no further fetches for this session.
	s.halted = errors.Is(err, domain.ErrUnauthorized)
	s.fault = fmt.Errorf("%w: %w", domain.ErrQuestionFetchFailed, err)
	return true, s.fault
}

// Retry re-issues the fetch for the current question after a failure.
func (s *Session) Retry() (Turn, error) {
	if s.state != StateLoading || s.fault == nil {
		return Turn{}, fmt.Errorf("%w: nothing to retry in %s", domain.ErrInvalidTransition, s.state)
	}
	if s.halted {
		return Turn{}, s.fault
	}
	s.seq++
	s.fault = nil
	return s.turn(), nil
}

// Tick consumes one second of the countdown. When it reaches zero the turn
// ends as a forced timeout.
func (s *Session) Tick(t Turn) (applied, timedOut bool) {
	if !s.current(t) || s.state != StateAwaitingAnswer || s.pending != nil {
		return false, false
	}
	s.remaining--
	if s.remaining > 0 {
		return true, false
	}
	s.remaining = 0
	s.record(domain.Outcome{
		Index:               s.index,
		QuestionID:          s.question.ID,
		IsCorrect:           false,
		TimedOut:            true,
		TimeConsumedSeconds: s.cfg.SecondsPerQuestion,
	})
	return true, true
}

// Submit stops the countdown and holds choice until a verdict arrives.
// A second submission in the same turn is a no-op: accepted is false and err is nil.
func (s *Session) Submit(choice string) (sub Submission, accepted bool, err error) {
	switch {
	case s.state == StateFeedback:
		return Submission{}, false, nil
	case s.state != StateAwaitingAnswer:
		return Submission{}, false, fmt.Errorf("%w: cannot answer while %s", domain.ErrInvalidTransition, s.state)
	case s.pending != nil:
		return Submission{}, false, nil
	case !s.question.HasOption(choice):
		return Submission{}, false, fmt.Errorf("%w: %q", domain.ErrInvalidChoice, choice)
	}
	s.pending = &Submission{
		Turn:       s.turn(),
		QuestionID: s.question.ID,
		Choice:     choice,
		Answer:     s.question.CorrectAnswer,
		Consumed:   s.cfg.SecondsPerQuestion - s.remaining,
	}
	return *s.pending, true, nil
}

// Resolve records the verdict of the pending submission and moves to Feedback.
func (s *Session) Resolve(t Turn, v domain.Verdict) (domain.Outcome, bool) {
	if !s.current(t) || s.state != StateAwaitingAnswer || s.pending == nil {
		return domain.Outcome{}, false
	}
	o := domain.Outcome{
		Index:               s.index,
		QuestionID:          s.pending.QuestionID,
		Choice:              s.pending.Choice,
		IsCorrect:           v.IsCorrect,
		TimeConsumedSeconds: s.pending.Consumed,
	}
	s.record(o)
	return o, true
}

// Reject drops the pending submission after a failed verdict call. Nothing is
// recorded and the countdown may resume.
func (s *Session) Reject(t Turn, err error) (bool, error) {
	if !s.current(t) || s.state != StateAwaitingAnswer || s.pending == nil {
		return false, nil
	}
	s.pending = nil
	failure := fmt.Errorf("%w: %w", domain.ErrAnswerSubmissionFailed, err)
	if errors.Is(err, domain.ErrUnauthorized) {
		s.halted = true
		s.fault = failure
	}
	return true, failure
}

// Next advances past Feedback. It returns the result when the session terminates,
// otherwise the turn of the next fetch.
func (s *Session) Next(at time.Time) (Turn, *domain.Result, error) {
	if s.state != StateFeedback {
		return Turn{}, nil, fmt.Errorf("%w: next while %s", domain.ErrInvalidTransition, s.state)
	}
	if s.cfg.Mode == domain.ModeFixedLength && s.index >= s.cfg.TotalQuestions {
		res := s.terminate(at)
		return Turn{}, &res, nil
	}
	if s.halted {
		return Turn{}, nil, s.fault
	}
	s.index++
	s.seq++
	s.question = nil
	s.state = StateLoading
	return s.turn(), nil, nil
}

// End terminates the session with whatever has been recorded. It is valid in
// Feedback, for open-ended sessions also while awaiting an answer, and in any
// active state once the session is halted by an Unauthorized failure.
func (s *Session) End(at time.Time) (domain.Result, error) {
	switch {
	case s.state == StateFeedback:
	case s.state == StateAwaitingAnswer && s.cfg.Mode == domain.ModeOpenEnded:
		s.pending = nil
	case s.halted && (s.state == StateLoading || s.state == StateAwaitingAnswer):
		s.pending = nil
	default:
		return domain.Result{}, fmt.Errorf("%w: end while %s", domain.ErrInvalidTransition, s.state)
	}
	return s.terminate(at), nil
}

// Abandon discards the session without producing a result.
func (s *Session) Abandon() {
	*s = Session{}
}

// State returns the current lifecycle step.
func (s *Session) State() State { return s.state }

// ID returns the session identity, empty when idle.
func (s *Session) ID() string { return s.id }

// Result returns the terminal result, if any.
func (s *Session) Result() (domain.Result, bool) {
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// History returns a copy of the recorded outcomes.
func (s *Session) History() []domain.Outcome {
	return append([]domain.Outcome(nil), s.history...)
}

// Snapshot is a read-only view of a session for display.
type Snapshot struct {
	SessionID          string           `json:"sessionId,omitempty"`
	State              State            `json:"state"`
	Mode               domain.Mode      `json:"mode,omitempty"`
	Index              int              `json:"index"`
	TotalQuestions     int              `json:"totalQuestions,omitempty"`
	SecondsPerQuestion int              `json:"secondsPerQuestion,omitempty"`
	Remaining          int              `json:"remaining"`
	Question           *domain.Question `json:"question,omitempty"`
	Pending            bool             `json:"pending"`
	Answered           int              `json:"answered"`
	Correct            int              `json:"correct"`
	Elapsed            int              `json:"elapsed"`
	Accuracy           float64          `json:"accuracy"`
	Halted             bool             `json:"halted"`
	Fault              error            `json:"-"`
}

func (s *Session) Snapshot() Snapshot {
	answered, correct, elapsed := domain.Tally(s.history)
	snap := Snapshot{
		SessionID:          s.id,
		State:              s.state,
		Mode:               s.cfg.Mode,
		Index:              s.index,
		TotalQuestions:     s.cfg.TotalQuestions,
		SecondsPerQuestion: s.cfg.SecondsPerQuestion,
		Remaining:          s.remaining,
		Pending:            s.pending != nil,
		Answered:           answered,
		Correct:            correct,
		Elapsed:            elapsed,
		Accuracy:           domain.Accuracy(correct, answered),
		Halted:             s.halted,
		Fault:              s.fault,
	}
	if s.question != nil {
		q := s.question.Public()
		snap.Question = &q
	}
	return snap
}

func (s *Session) turn() Turn {
	return Turn{SessionID: s.id, Seq: s.seq}
}

func (s *Session) current(t Turn) bool {
	return s.state != StateIdle && t == s.turn()
}

func (s *Session) record(o domain.Outcome) {
	s.history = append(s.history, o)
	s.pending = nil
	s.state = StateFeedback
}

func (s *Session) terminate(at time.Time) domain.Result {
	answered, correct, elapsed := domain.Tally(s.history)
	res := domain.Result{
		SessionID:      s.id,
		Subject:        s.subject,
		Mode:           s.cfg.Mode,
		TotalQuestions: answered,
		CorrectAnswers: correct,
		TimeSpent:      elapsed,
		FinishedAt:     at,
	}
	s.result = &res
	s.state = StateTerminated
	s.question = nil
	s.pending = nil
	s.remaining = 0
	return res
}
