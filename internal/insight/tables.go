package insight

import (
	_ "embed"
	"fmt"
	"sync"

	"gifts-assessment-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed data/compatibility.yaml
var compatibilityYAML []byte

//go:embed data/ministries.yaml
var ministriesYAML []byte

//go:embed data/templates.yaml
var templatesYAML []byte

// Ministry is a service area and the gifts it calls for.
type Ministry struct {
	Key              string               `yaml:"key"`
	Name             domain.LocalizedText `yaml:"name"`
	Description      domain.LocalizedText `yaml:"description"`
	Gifts            []domain.GiftKey     `yaml:"gifts"`
	Responsibilities []string             `yaml:"responsibilities"`
	GrowthAreas      []string             `yaml:"growth_areas"`
}

// GiftTemplate holds the canned narrative fragments for one gift in one locale.
type GiftTemplate struct {
	Name         string   `yaml:"name"`
	Insight      string   `yaml:"insight"`
	Strengths    string   `yaml:"strengths"`
	Challenges   string   `yaml:"challenges"`
	Development  string   `yaml:"development"`
	Applications []string `yaml:"applications"`
}

// LocaleTemplates is the template set for one locale.
type LocaleTemplates struct {
	Intro          string                          `yaml:"intro"`
	Secondary      string                          `yaml:"secondary"`
	MinistriesNone string                          `yaml:"ministries_none"`
	Gifts          map[domain.GiftKey]GiftTemplate `yaml:"gifts"`
}

// Tables is the static reference data behind the analyzer.
type Tables struct {
	pairs      map[pairKey]domain.CompatibilityPair
	Ministries []Ministry
	Templates  map[string]LocaleTemplates
}

type pairKey struct{ a, b domain.GiftKey }

func newPairKey(a, b domain.GiftKey) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

var (
	builtinOnce   sync.Once
	builtinTables *Tables
	builtinErr    error
)

// BuiltinTables returns the embedded tables, parsed once.
func BuiltinTables() (*Tables, error) {
	builtinOnce.Do(func() {
		builtinTables, builtinErr = ParseTables(compatibilityYAML, ministriesYAML, templatesYAML)
	})
	return builtinTables, builtinErr
}

// MustBuiltinTables panics when the embedded tables are invalid.
func MustBuiltinTables() *Tables {
	t, err := BuiltinTables()
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTables decodes the three YAML documents.
func ParseTables(compat, ministries, templates []byte) (*Tables, error) {
	var pairsDoc struct {
		Pairs []domain.CompatibilityPair `yaml:"pairs"`
	}
	if err := yaml.Unmarshal(compat, &pairsDoc); err != nil {
		return nil, fmt.Errorf("parse compatibility table: %w", err)
	}
	var ministriesDoc struct {
		Ministries []Ministry `yaml:"ministries"`
	}
	if err := yaml.Unmarshal(ministries, &ministriesDoc); err != nil {
		return nil, fmt.Errorf("parse ministries table: %w", err)
	}
	var templatesDoc map[string]LocaleTemplates
	if err := yaml.Unmarshal(templates, &templatesDoc); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if _, ok := templatesDoc[domain.DefaultLocale]; !ok {
		return nil, fmt.Errorf("templates: missing %q locale", domain.DefaultLocale)
	}

	t := &Tables{
		pairs:      make(map[pairKey]domain.CompatibilityPair, len(pairsDoc.Pairs)),
		Ministries: ministriesDoc.Ministries,
		Templates:  templatesDoc,
	}
	for _, p := range pairsDoc.Pairs {
		k := newPairKey(p.Primary, p.Secondary)
		if _, dup := t.pairs[k]; dup {
			return nil, fmt.Errorf("compatibility table: duplicate pair %s/%s", p.Primary, p.Secondary)
		}
		t.pairs[k] = p
	}
	return t, nil
}

// PairCount returns the number of distinct pairs in the table.
func (t *Tables) PairCount() int {
	return len(t.pairs)
}

// Pair returns the entry for the unordered pair, oriented as (a, b).
func (t *Tables) Pair(a, b domain.GiftKey) (domain.CompatibilityPair, bool) {
	p, ok := t.pairs[newPairKey(a, b)]
	if !ok {
		return domain.CompatibilityPair{}, false
	}
	p.Primary, p.Secondary = a, b
	p.Strengths = append([]string(nil), p.Strengths...)
	p.Challenges = append([]string(nil), p.Challenges...)
	return p, true
}

// Locale returns the template set for locale, falling back to the default locale.
func (t *Tables) Locale(locale string) LocaleTemplates {
	if lt, ok := t.Templates[locale]; ok {
		return lt
	}
	return t.Templates[domain.DefaultLocale]
}

// GiftName resolves a display name for the gift in locale.
func (t *Tables) GiftName(gift domain.GiftKey, locale string) string {
	if g, ok := t.Locale(locale).Gifts[gift]; ok && g.Name != "" {
		return g.Name
	}
	if g, ok := t.Templates[domain.DefaultLocale].Gifts[gift]; ok && g.Name != "" {
		return g.Name
	}
	return string(gift)
}

// NormalizeLocale maps unsupported locales onto the default one.
func (t *Tables) NormalizeLocale(locale string) string {
	if _, ok := t.Templates[locale]; ok {
		return locale
	}
	return domain.DefaultLocale
}
