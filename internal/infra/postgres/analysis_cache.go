package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gifts-assessment-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenBun opens a bun handle over the pgdriver connector.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type analysisRow struct {
	bun.BaseModel `bun:"table:ai_analysis_cache,alias:ac"`

	Identity    string           `bun:"identity,pk"`
	Fingerprint string           `bun:"fingerprint,pk"`
	Locale      string           `bun:"locale,pk"`
	Narrative   domain.Narrative `bun:"narrative,type:jsonb"`
	Confidence  int              `bun:"confidence"`
	Provider    string           `bun:"provider"`
	CreatedAt   time.Time        `bun:"created_at"`
	UpdatedAt   time.Time        `bun:"updated_at"`
}

// AnalysisCache is the durable narrative cache keyed by (identity, fingerprint, locale).
type AnalysisCache struct {
	db  *bun.DB
	now func() time.Time
}

func NewAnalysisCache(db *bun.DB) *AnalysisCache {
	return &AnalysisCache{db: db, now: time.Now}
}

func (c *AnalysisCache) Lookup(ctx context.Context, key domain.AnalysisKey) (domain.CachedAnalysis, bool, error) {
	var row analysisRow
	err := c.db.NewSelect().
		Model(&row).
		Where("identity = ?", key.Identity).
		Where("fingerprint = ?", key.Fingerprint).
		Where("locale = ?", key.Locale).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CachedAnalysis{}, false, nil
	}
	if err != nil {
		return domain.CachedAnalysis{}, false, fmt.Errorf("select analysis: %w", err)
	}
	return domain.CachedAnalysis{
		Key:        key,
		Narrative:  row.Narrative,
		Confidence: row.Confidence,
		Provider:   row.Provider,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, true, nil
}

// Upsert inserts or refreshes the entry; created_at of an existing row is kept.
func (c *AnalysisCache) Upsert(ctx context.Context, key domain.AnalysisKey, entry domain.CachedAnalysis) error {
	now := c.now().UTC()
	row := analysisRow{
		Identity:    key.Identity,
		Fingerprint: key.Fingerprint,
		Locale:      key.Locale,
		Narrative:   entry.Narrative,
		Confidence:  entry.Confidence,
		Provider:    entry.Provider,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := c.db.NewInsert().
		Model(&row).
		On("CONFLICT (identity, fingerprint, locale) DO UPDATE").
		Set("narrative = EXCLUDED.narrative").
		Set("confidence = EXCLUDED.confidence").
		Set("provider = EXCLUDED.provider").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}
