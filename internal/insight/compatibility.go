package insight

import (
	"context"
	"fmt"

	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/logger"
	"golang.org/x/sync/errgroup"
)

// genericPairScore is used when a pair has no table entry.
const genericPairScore = 50

// CompatibilitySource looks up the compatibility of two gifts.
type CompatibilitySource interface {
	Pair(ctx context.Context, a, b domain.GiftKey) (domain.CompatibilityPair, error)
}

// TableSource serves pairs from the embedded tables.
type TableSource struct {
	tables *Tables
}

func NewTableSource(tables *Tables) *TableSource {
	return &TableSource{tables: tables}
}

func (s *TableSource) Pair(_ context.Context, a, b domain.GiftKey) (domain.CompatibilityPair, error) {
	p, ok := s.tables.Pair(a, b)
	if !ok {
		return domain.CompatibilityPair{}, fmt.Errorf("no compatibility entry for %s/%s", a, b)
	}
	return p, nil
}

// GenericPair is the neutral entry used when a lookup fails.
func GenericPair(a, b domain.GiftKey) domain.CompatibilityPair {
	return domain.CompatibilityPair{
		Primary:    a,
		Secondary:  b,
		Score:      genericPairScore,
		Strengths:  []string{},
		Challenges: []string{},
		Synergy:    fmt.Sprintf("%s and %s can complement each other.", a, b),
	}
}

// LookupPairs resolves every unordered pair among gifts concurrently. Pairs are
// returned in rank order: (0,1), (0,2), (1,2)... Failed lookups become generic pairs.
func LookupPairs(ctx context.Context, src CompatibilitySource, gifts []domain.GiftKey, log *logger.Logger) []domain.CompatibilityPair {
	type job struct{ a, b domain.GiftKey }
	var jobs []job
	for i := 0; i < len(gifts); i++ {
		for j := i + 1; j < len(gifts); j++ {
			jobs = append(jobs, job{gifts[i], gifts[j]})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	out := make([]domain.CompatibilityPair, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, jb := range jobs {
		i, jb := i, jb
		g.Go(func() error {
			p, err := src.Pair(gctx, jb.a, jb.b)
			if err != nil {
				log.Warn("compatibility lookup failed, using generic pair", "primary", jb.a, "secondary", jb.b, "error", err)
				p = GenericPair(jb.a, jb.b)
			}
			out[i] = p
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// OverallCompatibility is the mean pair score, 0 without pairs.
func OverallCompatibility(pairs []domain.CompatibilityPair) float64 {
	if len(pairs) == 0 {
		return 0
	}
	total := 0
	for _, p := range pairs {
		total += p.Score
	}
	return float64(total) / float64(len(pairs))
}
