package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"gifts-assessment-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader loads gifts, questions and decision weights from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	gifts, err := l.loadGifts(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}
	questions, err := l.loadQuestions(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}
	weights, err := l.loadWeights(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}
	return domain.Catalog{Gifts: gifts, Questions: questions, Weights: weights}, nil
}

func (l *CatalogLoader) loadGifts(ctx context.Context) ([]domain.Gift, error) {
	rows, err := l.pool.Query(ctx, `SELECT key, ordinal, category, name, definition, qualities, characteristics, dangers, misunderstandings, biblical_refs
		FROM gifts ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("load gifts: %w", err)
	}
	defer rows.Close()

	var gifts []domain.Gift
	for rows.Next() {
		var (
			g                                                   domain.Gift
			name, definition                                    []byte
			qualities, characteristics, dangers, misunderstands []byte
			refs                                                []byte
		)
		if err := rows.Scan(&g.Key, &g.Ordinal, &g.Category, &name, &definition, &qualities, &characteristics, &dangers, &misunderstands, &refs); err != nil {
			return nil, fmt.Errorf("scan gift: %w", err)
		}
		if err := unmarshalAll(
			field{name, &g.Name}, field{definition, &g.Definition},
			field{qualities, &g.Qualities}, field{characteristics, &g.Characteristics},
			field{dangers, &g.Dangers}, field{misunderstands, &g.Misunderstandings},
			field{refs, &g.BiblicalRefs},
		); err != nil {
			return nil, fmt.Errorf("gift %s: %w", g.Key, err)
		}
		gifts = append(gifts, g)
	}
	return gifts, rows.Err()
}

func (l *CatalogLoader) loadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, gift_key, text, weight_class, source_type, default_weight, reverse_scored, active
		FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q    domain.Question
			text []byte
		)
		if err := rows.Scan(&q.ID, &q.Gift, &text, &q.WeightClass, &q.SourceType, &q.DefaultWeight, &q.ReverseScored, &q.Active); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(text, &q.Text); err != nil {
			return nil, fmt.Errorf("question %s text: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (l *CatalogLoader) loadWeights(ctx context.Context) ([]domain.DecisionWeight, error) {
	rows, err := l.pool.Query(ctx, `SELECT gift_key, weight_class, source_type, multiplier, active, rationale
		FROM decision_weights ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load decision weights: %w", err)
	}
	defer rows.Close()

	var weights []domain.DecisionWeight
	for rows.Next() {
		var w domain.DecisionWeight
		if err := rows.Scan(&w.Gift, &w.WeightClass, &w.SourceType, &w.Multiplier, &w.Active, &w.Rationale); err != nil {
			return nil, fmt.Errorf("scan decision weight: %w", err)
		}
		weights = append(weights, w)
	}
	return weights, rows.Err()
}

// SeedCatalog replaces the stored catalog with c in a single transaction.
func SeedCatalog(ctx context.Context, pool *pgxpool.Pool, c domain.Catalog) error {
	return pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, stmt := range []string{`DELETE FROM decision_weights`, `DELETE FROM questions`, `DELETE FROM gifts`} {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("clear catalog: %w", err)
			}
		}

		batch := &pgx.Batch{}
		for _, g := range c.Gifts {
			batch.Queue(`INSERT INTO gifts (key, ordinal, category, name, definition, qualities, characteristics, dangers, misunderstandings, biblical_refs)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				g.Key, g.Ordinal, g.Category, jsonb(g.Name), jsonb(g.Definition), jsonb(g.Qualities),
				jsonb(g.Characteristics), jsonb(g.Dangers), jsonb(g.Misunderstandings), jsonb(g.BiblicalRefs))
		}
		for _, q := range c.Questions {
			batch.Queue(`INSERT INTO questions (id, gift_key, text, weight_class, source_type, default_weight, reverse_scored, active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				q.ID, q.Gift, jsonb(q.Text), q.WeightClass, q.SourceType, q.DefaultWeight, q.ReverseScored, q.Active)
		}
		for _, w := range c.Weights {
			batch.Queue(`INSERT INTO decision_weights (gift_key, weight_class, source_type, multiplier, active, rationale)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				w.Gift, w.WeightClass, w.SourceType, w.Multiplier, w.Active, w.Rationale)
		}

		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("seed catalog: %w", err)
			}
		}
		return br.Close()
	})
}

type field struct {
	raw []byte
	dst interface{}
}

func unmarshalAll(fields ...field) error {
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return err
		}
	}
	return nil
}

// jsonb encodes v for a JSONB parameter; nil slices become empty arrays.
func jsonb(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return "[]"
	}
	return string(raw)
}
