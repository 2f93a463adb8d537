package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/logger"
	"gifts-assessment-service/internal/observability"
	"github.com/google/uuid"
)

// ScoringRepository abstracts how sessions and answers are stored (in-memory, Postgres).
type ScoringRepository interface {
	CreateSession(ctx context.Context, session domain.QuizSession) error
	GetSession(ctx context.Context, sessionID string) (domain.QuizSession, error)
	SaveAnswers(ctx context.Context, sessionID string, answers []domain.Answer) error
	// CompleteSession marks the session completed; domain.ErrSessionCompleted if it already was.
	CompleteSession(ctx context.Context, sessionID string, at time.Time) error
}

// AssessmentService contains the core assessment use cases.
type AssessmentService struct {
	sessions  ScoringRepository
	pool      *QuestionPool
	generator *Generator
	scorer    *Scorer
	log       *logger.Logger
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string
}

func NewAssessmentService(sessions ScoringRepository, pool *QuestionPool, log *logger.Logger, metrics *observability.Metrics) *AssessmentService {
	if log == nil {
		log = logger.Nop()
	}
	return &AssessmentService{
		sessions:  sessions,
		pool:      pool,
		generator: NewGenerator(pool),
		scorer:    NewScorer(log),
		log:       log.With("component", "assessment_service"),
		metrics:   metrics,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *AssessmentService) WithClock(now func() time.Time) *AssessmentService {
	s.now = now
	return s
}

// StartResult is a freshly generated assessment.
type StartResult struct {
	Session   domain.QuizSession `json:"session"`
	Questions []domain.Question  `json:"questions"`
}

// Start creates a session and generates its balanced question list.
func (s *AssessmentService) Start(ctx context.Context, userID, locale string, questionsPerGift int) (StartResult, error) {
	if locale == "" {
		locale = domain.DefaultLocale
	}
	id := s.newID()
	questions, err := s.generator.Generate(ctx, id, questionsPerGift, locale)
	if err != nil {
		return StartResult{}, err
	}
	session := domain.QuizSession{
		ID:            id,
		UserID:        userID,
		Locale:        locale,
		QuestionOrder: QuestionIDs(questions),
		CreatedAt:     s.now().UTC(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return StartResult{}, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("assessment started", "session", id, "user_id", userID, "questions", len(questions))
	return StartResult{Session: session, Questions: questions}, nil
}

// Session returns the stored session.
func (s *AssessmentService) Session(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	return s.sessions.GetSession(ctx, sessionID)
}

// Questions returns the assigned questions of a session in their generated order.
func (s *AssessmentService) Questions(ctx context.Context, sessionID string) ([]domain.Question, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ResolveOrder(s.pool.Catalog(ctx), session.QuestionOrder, session.Locale), nil
}

// Submit stores the answers, scores them against the session's assigned
// questions and completes the session.
func (s *AssessmentService) Submit(ctx context.Context, sessionID string, answers map[string]int) (domain.ScoreVector, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.ScoreVector{}, err
	}
	if session.Completed {
		return domain.ScoreVector{}, domain.ErrSessionCompleted
	}

	c := s.pool.Catalog(ctx)
	questions := ResolveOrder(c, session.QuestionOrder, session.Locale)
	if len(questions) == 0 {
		return domain.ScoreVector{}, domain.ErrNoQuestions
	}
	scores := s.scorer.Score(answers, questions, c.SortedGifts(), domain.NewDecisionMatrix(c.Weights))

	// Only answers the scorer accepted are stored.
	rows := make([]domain.Answer, 0, len(answers))
	for _, q := range questions {
		if v, ok := answers[q.ID]; ok && v >= domain.MinScale && v <= domain.MaxScale {
			rows = append(rows, domain.Answer{SessionID: sessionID, QuestionID: q.ID, Score: v})
		}
	}
	if err := s.sessions.SaveAnswers(ctx, sessionID, rows); err != nil {
		if errors.Is(err, domain.ErrSessionCompleted) || errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ScoreVector{}, err
		}
		// Scores are still returned; the session stays open so the client can resubmit.
		s.log.Warn("save answers failed, returning unsaved scores", "session", sessionID, "error", err)
		return scores, nil
	}
	if err := s.sessions.CompleteSession(ctx, sessionID, s.now().UTC()); err != nil {
		return domain.ScoreVector{}, err
	}
	s.metrics.SessionCompleted()
	s.log.Info("assessment completed", "session", sessionID, "gifts", scores.Len())
	return scores, nil
}

// ScoreLocal scores answers against a question list without touching session storage.
func (s *AssessmentService) ScoreLocal(ctx context.Context, answers map[string]int, questions []domain.Question) domain.ScoreVector {
	c := s.pool.Catalog(ctx)
	return s.scorer.Score(answers, questions, c.SortedGifts(), domain.NewDecisionMatrix(c.Weights))
}
