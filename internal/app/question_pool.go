package app

import (
	"context"

	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/logger"
	"gifts-assessment-service/internal/observability"
)

// CatalogRepository loads assessment content (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context) (domain.Catalog, error)
}

// QuestionPool is the read-only view of the question catalog and decision matrix.
// Repository failures degrade to the fallback catalog so the assessment never halts.
type QuestionPool struct {
	repo     CatalogRepository
	fallback domain.Catalog
	log      *logger.Logger
	metrics  *observability.Metrics
}

func NewQuestionPool(repo CatalogRepository, fallback domain.Catalog, log *logger.Logger, metrics *observability.Metrics) *QuestionPool {
	if log == nil {
		log = logger.Nop()
	}
	return &QuestionPool{repo: repo, fallback: fallback, log: log.With("component", "question_pool"), metrics: metrics}
}

// Catalog returns the current catalog snapshot.
func (p *QuestionPool) Catalog(ctx context.Context) domain.Catalog {
	if p.repo == nil {
		return p.fallback
	}
	c, err := p.repo.GetCatalog(ctx)
	if err != nil {
		p.log.Warn("catalog unavailable, using built-in questions", "error", err)
		p.metrics.CatalogFallback()
		return p.fallback
	}
	return c
}

func (p *QuestionPool) ActiveQuestions(ctx context.Context) []domain.Question {
	return p.Catalog(ctx).ActiveQuestions()
}

func (p *QuestionPool) Gifts(ctx context.Context) []domain.Gift {
	return p.Catalog(ctx).SortedGifts()
}

func (p *QuestionPool) Matrix(ctx context.Context) domain.DecisionMatrix {
	return domain.NewDecisionMatrix(p.Catalog(ctx).Weights)
}

// Multiplier returns the active multiplier for the key, 1 when none matches.
func (p *QuestionPool) Multiplier(ctx context.Context, gift domain.GiftKey, wc domain.WeightClass, st domain.SourceType) float64 {
	return p.Matrix(ctx).Multiplier(gift, wc, st)
}
