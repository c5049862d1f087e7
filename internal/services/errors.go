package services

import "errors"

// Sentinel errors for guard conditions and external-service failures.
// Handlers map these onto HTTP status codes; services never do.
var (
	// ErrDocumentNotFound is returned by the document store when no document
	// exists for the given learner.
	ErrDocumentNotFound = errors.New("learner document not found")

	// ErrQuestionNotFound is returned when a question id is not present in
	// the learner's document.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrAlreadyCorrect rejects an answer submission for a question that
	// already has a correct answer. No external call is made.
	ErrAlreadyCorrect = errors.New("question already answered correctly")

	// ErrOperationInFlight rejects a duplicate concurrent invocation of the
	// same operation for the same question.
	ErrOperationInFlight = errors.New("operation already in progress")

	// ErrEmptyCompletion is returned when the language model service answers
	// with no text. Treated as a hard failure, never retried here.
	ErrEmptyCompletion = errors.New("language model returned empty completion")

	// ErrUsageLimitExceeded is returned when the learner's daily language
	// model budget is spent.
	ErrUsageLimitExceeded = errors.New("daily usage limit exceeded")

	// ErrLanguageService wraps transport and protocol failures from the
	// language model endpoint so handlers can report a bad gateway.
	ErrLanguageService = errors.New("language service error")
)
