package domain

import "errors"

var (
	// ErrInvalidConfiguration is returned when a session is started with bad timing or length parameters.
	ErrInvalidConfiguration = errors.New("invalid session configuration")
	// ErrQuestionFetchFailed wraps any failure to obtain the next question.
	ErrQuestionFetchFailed = errors.New("question fetch failed")
	// ErrAnswerSubmissionFailed wraps any failure to obtain a verdict for a submitted answer.
	ErrAnswerSubmissionFailed = errors.New("answer submission failed")
	// ErrUnauthorized indicates the credential was missing or rejected by the question source.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the question source has nothing to serve for the request.
	ErrNotFound = errors.New("not found")
	// ErrNetwork indicates the question source could not be reached.
	ErrNetwork = errors.New("network error")
	// ErrInvalidTransition is returned when an action is not valid in the current session state.
	ErrInvalidTransition = errors.New("action not valid in current state")
	// ErrInvalidChoice indicates the submitted answer is not one of the displayed options.
	ErrInvalidChoice = errors.New("choice is not one of the options")
	// ErrQuestionNotFound indicates a verdict was requested for a question that was never issued.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuestion indicates a served question cannot be displayed.
	ErrInvalidQuestion = errors.New("invalid question")
)
