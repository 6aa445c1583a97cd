package domain

import "errors"

var (
	// ErrChapterNotFound is returned when no chapter occupies the requested position.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrNoQuiz indicates the chapter has no practice region.
	ErrNoQuiz = errors.New("chapter has no practice section")
	// ErrAnswersNotFound indicates the chapter ships no answers document.
	ErrAnswersNotFound = errors.New("answers not found for chapter")
	// ErrCodeNotFound indicates the chapter ships no code-so-far document.
	ErrCodeNotFound = errors.New("code listing not found for chapter")
	// ErrSessionNotFound is returned when a practice session ID is unknown or expired.
	ErrSessionNotFound = errors.New("practice session not found")
)
