package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-runner/internal/domain"
)

var errNoVerdict = errors.New("question carries no correct answer and source cannot judge")

// EventKind names what an Event reports.
type EventKind string

const (
	EventLoading  EventKind = "loading"
	EventQuestion EventKind = "question"
	EventTick     EventKind = "tick"
	EventOutcome  EventKind = "outcome"
	EventFault    EventKind = "fault"
	EventResult   EventKind = "result"
)

// Event is emitted to the Observer after every applied transition.
type Event struct {
	Kind      EventKind
	SessionID string
	State     State
	Index     int
	Remaining int
	Question  *domain.Question
	Outcome   *domain.Outcome
	// CorrectAnswer is set on outcome events when the engine judged locally.
	CorrectAnswer string
	Result        *domain.Result
	Err           error
}

// Observer receives engine events in order. It is called with the runner lock
// held and must not call back into the Runner.
type Observer interface {
	OnEvent(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// Option customizes a Runner.
type Option func(*Runner)

// WithClock replaces the system clock, typically with a ManualClock.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithDispatch controls how source calls are run. The default runs each call
// on its own goroutine; tests pass a synchronous dispatcher.
func WithDispatch(dispatch func(func())) Option {
	return func(r *Runner) { r.dispatch = dispatch }
}

// WithIDGenerator replaces the UUID session id generator.
func WithIDGenerator(newID func() string) Option {
	return func(r *Runner) { r.newID = newID }
}

// Runner drives one Session at a time against a question source. Every
// exported method is safe to call from any goroutine; events are serialized.
type Runner struct {
	source   QuestionSource
	judge    AnswerJudge
	reporter Reporter
	observer Observer
	clock    Clock
	dispatch func(func())
	newID    func() string

	mu       sync.Mutex
	session  Session
	cred     domain.Credential
	ctx      context.Context
	timer    Timer
	timerGen uint64
}

// NewRunner builds a runner. If source also implements AnswerJudge, verdicts
// come from it; otherwise answers are checked against Question.CorrectAnswer.
func NewRunner(source QuestionSource, reporter Reporter, opts ...Option) *Runner {
	r := &Runner{
		source:   source,
		reporter: reporter,
		clock:    SystemClock,
		dispatch: func(f func()) { go f() },
		newID:    uuid.NewString,
		ctx:      context.Background(),
	}
	if judge, ok := source.(AnswerJudge); ok {
		r.judge = judge
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins a session and fetches question #1. ctx scopes every source call of the session.
func (r *Runner) Start(ctx context.Context, cred domain.Credential, cfg Config) error {
	r.mu.Lock()
	turn, err := r.session.Start(r.newID(), cred.Subject, cfg)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.stopTimerLocked()
	r.cred = cred
	r.ctx = ctx
	req := r.questionRequestLocked()
	r.emitLocked(Event{Kind: EventLoading})
	r.mu.Unlock()

	r.fetch(ctx, turn, req)
	return nil
}

// Submit answers the current question. Verdict failures from a remote judge
// are reported to the observer as fault events.
func (r *Runner) Submit(choice string) error {
	r.mu.Lock()
	sub, accepted, err := r.session.Submit(choice)
	if err != nil || !accepted {
		r.mu.Unlock()
		return err
	}
	r.stopTimerLocked()

	if r.judge == nil {
		defer r.mu.Unlock()
		if sub.Answer == "" {
			_, failure := r.session.Reject(sub.Turn, errNoVerdict)
			r.startTimerLocked(sub.Turn)
			r.emitLocked(Event{Kind: EventFault, Err: failure})
			return failure
		}
		outcome, _ := r.session.Resolve(sub.Turn, domain.Verdict{IsCorrect: sub.Choice == sub.Answer})
		r.emitLocked(Event{Kind: EventOutcome, Outcome: &outcome, CorrectAnswer: sub.Answer})
		return nil
	}

	ctx := r.ctx
	req := AnswerRequest{
		Credential: r.cred,
		SessionID:  sub.Turn.SessionID,
		QuestionID: sub.QuestionID,
		Choice:     sub.Choice,
	}
	r.mu.Unlock()

	r.dispatch(func() {
		verdict, err := r.judge.JudgeAnswer(ctx, req)
		r.deliverVerdict(sub.Turn, verdict, err)
	})
	return nil
}

// Next moves past feedback: it either terminates the session or fetches the next question.
func (r *Runner) Next() error {
	r.mu.Lock()
	turn, res, err := r.session.Next(r.clock.Now())
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if res != nil {
		r.stopTimerLocked()
		r.emitLocked(Event{Kind: EventResult, Result: res})
		r.mu.Unlock()
		r.report(*res)
		return nil
	}
	ctx := r.ctx
	req := r.questionRequestLocked()
	r.emitLocked(Event{Kind: EventLoading})
	r.mu.Unlock()

	r.fetch(ctx, turn, req)
	return nil
}

// End terminates the session early and reports what was recorded.
func (r *Runner) End() error {
	r.mu.Lock()
	res, err := r.session.End(r.clock.Now())
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.stopTimerLocked()
	r.emitLocked(Event{Kind: EventResult, Result: &res})
	r.mu.Unlock()

	r.report(res)
	return nil
}

// Retry re-issues a failed question fetch.
func (r *Runner) Retry() error {
	r.mu.Lock()
	turn, err := r.session.Retry()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	ctx := r.ctx
	req := r.questionRequestLocked()
	r.emitLocked(Event{Kind: EventLoading})
	r.mu.Unlock()

	r.fetch(ctx, turn, req)
	return nil
}

// Abandon drops the session without reporting. Late completions are discarded.
func (r *Runner) Abandon() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	r.session.Abandon()
}

// Snapshot returns the current view of the session.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Snapshot()
}

// History returns the outcomes recorded so far.
func (r *Runner) History() []domain.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.History()
}

func (r *Runner) fetch(ctx context.Context, turn Turn, req QuestionRequest) {
	r.dispatch(func() {
		q, err := r.source.NextQuestion(ctx, req)
		r.deliverQuestion(turn, q, err)
	})
}

func (r *Runner) deliverQuestion(turn Turn, q domain.Question, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		if applied, fault := r.session.QuestionFailed(turn, err); applied {
			r.emitLocked(Event{Kind: EventFault, Err: fault})
		}
		return
	}
	applied, fault := r.session.QuestionLoaded(turn, q)
	if !applied {
		return
	}
	if fault != nil {
		r.emitLocked(Event{Kind: EventFault, Err: fault})
		return
	}
	r.startTimerLocked(turn)
	public := q.Public()
	r.emitLocked(Event{Kind: EventQuestion, Question: &public})
}

func (r *Runner) deliverVerdict(turn Turn, v domain.Verdict, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		applied, failure := r.session.Reject(turn, err)
		if !applied {
			return
		}
		r.startTimerLocked(turn)
		r.emitLocked(Event{Kind: EventFault, Err: failure})
		return
	}
	if outcome, applied := r.session.Resolve(turn, v); applied {
		r.emitLocked(Event{Kind: EventOutcome, Outcome: &outcome})
	}
}

func (r *Runner) startTimerLocked(turn Turn) {
	r.stopTimerLocked()
	r.armLocked(r.timerGen, turn)
}

func (r *Runner) armLocked(gen uint64, turn Turn) {
	r.timer = r.clock.AfterFunc(time.Second, func() { r.onTick(gen, turn) })
}

// stopTimerLocked cancels the countdown. Bumping the generation turns a
// callback that already fired into a no-op.
func (r *Runner) stopTimerLocked() {
	r.timerGen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Runner) onTick(gen uint64, turn Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.timerGen {
		return
	}
	applied, timedOut := r.session.Tick(turn)
	if !applied {
		r.timer = nil
		return
	}
	if timedOut {
		r.timer = nil
		history := r.session.History()
		outcome := history[len(history)-1]
		r.emitLocked(Event{Kind: EventOutcome, Outcome: &outcome})
		return
	}
	r.armLocked(gen, turn)
	r.emitLocked(Event{Kind: EventTick})
}

func (r *Runner) questionRequestLocked() QuestionRequest {
	snap := r.session.Snapshot()
	return QuestionRequest{
		Credential: r.cred,
		SessionID:  snap.SessionID,
		Index:      snap.Index,
		Mode:       snap.Mode,
	}
}

func (r *Runner) emitLocked(ev Event) {
	if r.observer == nil {
		return
	}
	snap := r.session.Snapshot()
	ev.SessionID = snap.SessionID
	ev.State = snap.State
	ev.Index = snap.Index
	ev.Remaining = snap.Remaining
	if ev.Result != nil {
		ev.SessionID = ev.Result.SessionID
	}
	r.observer.OnEvent(ev)
}

func (r *Runner) report(res domain.Result) {
	if r.reporter != nil {
		r.reporter.OnSessionComplete(res)
	}
}
