package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Mode is the termination policy of a session.
type Mode string

const (
	// ModeFixedLength runs a known number of questions (assignments).
	ModeFixedLength Mode = "assignment"
	// ModeOpenEnded runs until the session is explicitly ended (practice).
	ModeOpenEnded Mode = "practice"
)

// ParseMode accepts the wire names and a few human-friendly aliases.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "assignment", "fixed", "fixed-length":
		return ModeFixedLength, nil
	case "practice", "open", "open-ended":
		return ModeOpenEnded, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidConfiguration, raw)
}

// Credential is the auth context attached to every question source call.
type Credential struct {
	Token   string
	Subject string
	Role    string
}

// Question is one served item. CorrectAnswer is empty when the source judges answers itself.
type Question struct {
	ID            string   `json:"id,omitempty"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
}

// Validate rejects questions that cannot be displayed.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: need at least two options, got %d", ErrInvalidQuestion, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if opt == "" {
			return fmt.Errorf("%w: empty option", ErrInvalidQuestion)
		}
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: duplicate option %q", ErrInvalidQuestion, opt)
		}
		seen[opt] = struct{}{}
	}
	if q.CorrectAnswer != "" {
		if _, ok := seen[q.CorrectAnswer]; !ok {
			return fmt.Errorf("%w: answer %q is not an option", ErrInvalidQuestion, q.CorrectAnswer)
		}
	}
	return nil
}

// HasOption reports whether choice is one of the displayed options.
func (q Question) HasOption(choice string) bool {
	for _, opt := range q.Options {
		if opt == choice {
			return true
		}
	}
	return false
}

// Public returns a copy safe to hand to a client that must not see the answer.
func (q Question) Public() Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	out.CorrectAnswer = ""
	return out
}

// Verdict is a source's judgement of a submitted answer.
type Verdict struct {
	IsCorrect bool `json:"isCorrect"`
}

// Outcome is the immutable record of one question turn.
type Outcome struct {
	Index               int    `json:"index"`
	QuestionID          string `json:"questionId,omitempty"`
	Choice              string `json:"choice,omitempty"`
	IsCorrect           bool   `json:"isCorrect"`
	TimedOut            bool   `json:"timedOut"`
	TimeConsumedSeconds int    `json:"timeConsumedSeconds"`
}

// Result is the terminal artifact of a session.
type Result struct {
	SessionID      string    `json:"sessionId"`
	Subject        string    `json:"subject,omitempty"`
	Mode           Mode      `json:"mode"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	TimeSpent      int       `json:"timeSpent"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// Accuracy is the percentage of correct answers rounded to one decimal.
func (r Result) Accuracy() float64 {
	return Accuracy(r.CorrectAnswers, r.TotalQuestions)
}

// AverageTime is the mean seconds per answered question rounded to one decimal.
func (r Result) AverageTime() float64 {
	if r.TotalQuestions == 0 {
		return 0
	}
	return round1(float64(r.TimeSpent) / float64(r.TotalQuestions))
}

// Accuracy returns round(correct/answered*100, 1), or 0 when nothing was answered.
func Accuracy(correct, answered int) float64 {
	if answered <= 0 {
		return 0
	}
	return round1(float64(correct) / float64(answered) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Tally derives answered/correct/elapsed counters from an outcome history.
func Tally(history []Outcome) (answered, correct, elapsed int) {
	for _, o := range history {
		answered++
		if o.IsCorrect {
			correct++
		}
		elapsed += o.TimeConsumedSeconds
	}
	return answered, correct, elapsed
}
