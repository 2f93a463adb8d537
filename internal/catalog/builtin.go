// Package catalog ships the minimal built-in assessment content used when the
// content store is unreachable.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gifts-assessment-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed data/builtin.yaml
var builtinYAML []byte

var (
	builtinOnce sync.Once
	builtin     domain.Catalog
	builtinErr  error
)

// Builtin returns the embedded catalog. The returned value is a copy safe to mutate.
func Builtin() (domain.Catalog, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = Parse(builtinYAML)
	})
	if builtinErr != nil {
		return domain.Catalog{}, builtinErr
	}
	return clone(builtin), nil
}

// MustBuiltin is Builtin for wiring code that cannot proceed without content.
func MustBuiltin() domain.Catalog {
	c, err := Builtin()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a YAML catalog document.
func Parse(raw []byte) (domain.Catalog, error) {
	var c domain.Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return domain.Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	for _, q := range c.Questions {
		if q.DefaultWeight < 0 {
			return domain.Catalog{}, fmt.Errorf("parse catalog: question %s has negative default_weight %v", q.ID, q.DefaultWeight)
		}
	}
	return c, nil
}

func clone(c domain.Catalog) domain.Catalog {
	return domain.Catalog{
		Gifts:     append([]domain.Gift(nil), c.Gifts...),
		Questions: append([]domain.Question(nil), c.Questions...),
		Weights:   append([]domain.DecisionWeight(nil), c.Weights...),
	}
}
