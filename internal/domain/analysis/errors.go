package analysis

import "errors"

var (
	// ErrEmptyPrompt indicates the request carried no prompt text.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrPromptTooLong indicates the prompt exceeds MaxPromptLength characters.
	ErrPromptTooLong = errors.New("prompt too long")

	// ErrStorage wraps any failure to persist or read security_log rows.
	ErrStorage = errors.New("analysis storage failure")

	// ErrInvalidFilter indicates more than one category filter was given.
	ErrInvalidFilter = errors.New("only one category filter may be set")
)
