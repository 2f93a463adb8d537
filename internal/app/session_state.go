package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/logger"
)

// StateKey is the single device-local key holding the in-progress assessment.
const StateKey = "gifts-assessment:state"

// DefaultStateMaxAge bounds how long a saved assessment can be resumed.
const DefaultStateMaxAge = 24 * time.Hour

// SessionStateStore is device-local key/value storage.
// Load returns domain.ErrStateNotFound when nothing is stored under key.
type SessionStateStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// SessionStateManager makes an in-progress assessment resumable.
type SessionStateManager struct {
	store  SessionStateStore
	maxAge time.Duration
	now    func() time.Time
	log    *logger.Logger
}

func NewSessionStateManager(store SessionStateStore, log *logger.Logger) *SessionStateManager {
	return NewSessionStateManagerWithClock(store, DefaultStateMaxAge, time.Now, log)
}

// NewSessionStateManagerWithClock allows deterministic staleness checks in tests.
func NewSessionStateManagerWithClock(store SessionStateStore, maxAge time.Duration, now func() time.Time, log *logger.Logger) *SessionStateManager {
	if log == nil {
		log = logger.Nop()
	}
	if maxAge <= 0 {
		maxAge = DefaultStateMaxAge
	}
	return &SessionStateManager{store: store, maxAge: maxAge, now: now, log: log.With("component", "session_state")}
}

// Persist overwrites the stored state with state.
func (m *SessionStateManager) Persist(ctx context.Context, state domain.AssessmentState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := m.store.Save(ctx, StateKey, data); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

// Restore returns the stored state if it is fresh and has answers. Corrupt or
// stale state is cleared.
func (m *SessionStateManager) Restore(ctx context.Context) (domain.AssessmentState, bool) {
	data, err := m.store.Load(ctx, StateKey)
	if err != nil {
		if !errors.Is(err, domain.ErrStateNotFound) {
			m.log.Warn("load session state failed", "error", err)
		}
		return domain.AssessmentState{}, false
	}

	var state domain.AssessmentState
	if err := json.Unmarshal(data, &state); err != nil {
		m.log.Warn("discarding corrupt session state", "error", err)
		m.discard(ctx)
		return domain.AssessmentState{}, false
	}
	if m.now().Sub(state.StartedAt) >= m.maxAge {
		m.log.Info("discarding stale session state", "started_at", state.StartedAt)
		m.discard(ctx)
		return domain.AssessmentState{}, false
	}
	if len(state.Answers) == 0 {
		return domain.AssessmentState{}, false
	}
	return state, true
}

// Clear removes the stored state.
func (m *SessionStateManager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, StateKey); err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}

// Begin returns a fresh state for the given quiz.
func (m *SessionStateManager) Begin(sessionID, locale string, order []string) domain.AssessmentState {
	return domain.AssessmentState{
		SessionID:     sessionID,
		Locale:        locale,
		Answers:       map[string]int{},
		StartedAt:     m.now().UTC(),
		QuestionOrder: order,
	}
}

// RecordAnswer returns a copy of state with the answer stored and the cursor
// advanced past it, and persists that copy. The input state is never modified.
func (m *SessionStateManager) RecordAnswer(ctx context.Context, state domain.AssessmentState, questionID string, score int) (domain.AssessmentState, error) {
	answers := make(map[string]int, len(state.Answers)+1)
	for id, v := range state.Answers {
		answers[id] = v
	}
	answers[questionID] = score
	state.Answers = answers
	for i, id := range state.QuestionOrder {
		if id == questionID && i+1 > state.CurrentQuestionIndex {
			state.CurrentQuestionIndex = i + 1
			break
		}
	}
	return state, m.Persist(ctx, state)
}

func (m *SessionStateManager) discard(ctx context.Context) {
	if err := m.Clear(ctx); err != nil {
		m.log.Warn("discard session state failed", "error", err)
	}
}
