package memory

import (
	"context"
	"sync"
	"time"

	"gifts-assessment-service/internal/domain"
)

// ScoringRepository is an in-memory implementation of app.ScoringRepository.
type ScoringRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.QuizSession
	answers  map[string]map[string]int
}

func NewScoringRepository() *ScoringRepository {
	return &ScoringRepository{
		sessions: make(map[string]domain.QuizSession),
		answers:  make(map[string]map[string]int),
	}
}

func (r *ScoringRepository) CreateSession(_ context.Context, session domain.QuizSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.QuestionOrder = append([]string(nil), session.QuestionOrder...)
	r.sessions[session.ID] = session
	return nil
}

func (r *ScoringRepository) GetSession(_ context.Context, sessionID string) (domain.QuizSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *ScoringRepository) SaveAnswers(_ context.Context, sessionID string, answers []domain.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Completed {
		return domain.ErrSessionCompleted
	}
	stored := r.answers[sessionID]
	if stored == nil {
		stored = make(map[string]int, len(answers))
		r.answers[sessionID] = stored
	}
	for _, a := range answers {
		stored[a.QuestionID] = a.Score
	}
	return nil
}

func (r *ScoringRepository) CompleteSession(_ context.Context, sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Completed {
		return domain.ErrSessionCompleted
	}
	session.Completed = true
	session.CompletedAt = &at
	r.sessions[sessionID] = session
	return nil
}

// Answers returns a copy of the stored answers of a session.
func (r *ScoringRepository) Answers(sessionID string) map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.answers[sessionID]))
	for k, v := range r.answers[sessionID] {
		out[k] = v
	}
	return out
}
