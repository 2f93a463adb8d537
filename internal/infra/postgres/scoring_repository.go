package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gifts-assessment-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ScoringRepository persists quiz sessions and answers.
type ScoringRepository struct {
	pool *pgxpool.Pool
}

func NewScoringRepository(pool *pgxpool.Pool) *ScoringRepository {
	return &ScoringRepository{pool: pool}
}

func (r *ScoringRepository) CreateSession(ctx context.Context, s domain.QuizSession) error {
	order, err := json.Marshal(s.QuestionOrder)
	if err != nil {
		return fmt.Errorf("encode question order: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO quiz_sessions (id, user_id, locale, question_order, created_at, completed)
		VALUES ($1, $2, $3, $4, $5, FALSE)`, s.ID, s.UserID, s.Locale, string(order), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *ScoringRepository) GetSession(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	var (
		s     domain.QuizSession
		order []byte
	)
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, locale, question_order, created_at, completed_at, completed
		FROM quiz_sessions WHERE id=$1`, sessionID).
		Scan(&s.ID, &s.UserID, &s.Locale, &order, &s.CreatedAt, &s.CompletedAt, &s.Completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal(order, &s.QuestionOrder); err != nil {
		return domain.QuizSession{}, fmt.Errorf("decode question order: %w", err)
	}
	return s, nil
}

// SaveAnswers upserts answers; a later answer for the same question replaces the earlier one.
func (r *ScoringRepository) SaveAnswers(ctx context.Context, sessionID string, answers []domain.Answer) error {
	return r.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var completed bool
		err := tx.QueryRow(ctx, `SELECT completed FROM quiz_sessions WHERE id=$1 FOR UPDATE`, sessionID).Scan(&completed)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		if completed {
			return domain.ErrSessionCompleted
		}
		for _, a := range answers {
			if _, err := tx.Exec(ctx, `INSERT INTO quiz_answers (session_id, question_id, score)
				VALUES ($1, $2, $3)
				ON CONFLICT (session_id, question_id) DO UPDATE SET score=EXCLUDED.score, answered_at=now()`,
				sessionID, a.QuestionID, a.Score); err != nil {
				return fmt.Errorf("save answer %s: %w", a.QuestionID, err)
			}
		}
		return nil
	})
}

func (r *ScoringRepository) CompleteSession(ctx context.Context, sessionID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE quiz_sessions SET completed=TRUE, completed_at=$2 WHERE id=$1 AND NOT completed`, sessionID, at)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetSession(ctx, sessionID); err != nil {
		return err
	}
	return domain.ErrSessionCompleted
}

// Answers returns the stored answers of a session.
func (r *ScoringRepository) Answers(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT question_id, score FROM quiz_answers WHERE session_id=$1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			id    string
			score int16
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out[id] = int(score)
	}
	return out, rows.Err()
}
