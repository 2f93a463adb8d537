package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session does not exist.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionCompleted is returned when answers are submitted to a finished session.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrCatalogNotFound indicates the assessment content could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrNoQuestions indicates that no active questions are available at all.
	ErrNoQuestions = errors.New("no questions available")
	// ErrInvalidQuizSize is returned for a non-positive questions-per-gift request.
	ErrInvalidQuizSize = errors.New("questions per gift must be positive")
	// ErrStateNotFound is returned by session-state stores when nothing is saved.
	ErrStateNotFound = errors.New("session state not found")
	// ErrEmptyScores is returned when an analysis is requested for an empty score vector.
	ErrEmptyScores = errors.New("score vector is empty")
	// ErrAnalysisSuperseded is returned to an analysis replaced by a newer request for the same subject.
	ErrAnalysisSuperseded = errors.New("analysis superseded by a newer request")
	// ErrUnauthorized is returned when a privileged call lacks a valid identity.
	ErrUnauthorized = errors.New("unauthorized")
)
