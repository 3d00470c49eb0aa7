package spell

import (
	"context"
	"fmt"

	"github.com/searchcore/keywordindexer/internal/pipeline"
	apperrors "github.com/searchcore/keywordindexer/pkg/errors"
	"github.com/searchcore/keywordindexer/pkg/metrics"
	"github.com/searchcore/keywordindexer/pkg/resilience"
)

// Guarded wraps a spell checker with a circuit breaker so a flapping
// backend degrades to fast, non-blocking failures instead of slowing every
// token. The pipeline already treats checker errors as non-fatal, so an
// open circuit simply disables spell-assist until the backend recovers.
type Guarded struct {
	inner   pipeline.SpellChecker
	breaker *resilience.Breaker
	metrics *metrics.Metrics
}

// Guard decorates checker with breaker. m may be nil to skip counters.
func Guard(checker pipeline.SpellChecker, breaker *resilience.Breaker, m *metrics.Metrics) *Guarded {
	return &Guarded{inner: checker, breaker: breaker, metrics: m}
}

func (g *Guarded) Check(ctx context.Context, word string) (bool, error) {
	var ok bool
	err := g.breaker.Execute(func() error {
		var err error
		ok, err = g.inner.Check(ctx, word)
		return err
	})
	return ok, g.fail(err)
}

func (g *Guarded) Suggest(ctx context.Context, word string) ([]string, error) {
	var suggestions []string
	err := g.breaker.Execute(func() error {
		var err error
		suggestions, err = g.inner.Suggest(ctx, word)
		return err
	})
	return suggestions, g.fail(err)
}

func (g *Guarded) AddToPersonalWordlist(ctx context.Context, word string) error {
	err := g.breaker.Execute(func() error {
		return g.inner.AddToPersonalWordlist(ctx, word)
	})
	if err == nil && g.metrics != nil {
		g.metrics.MisspellingsTotal.Inc()
	}
	return g.fail(err)
}

// fail counts a collaborator failure and tags the error so callers can
// branch on the spell-check sentinel.
func (g *Guarded) fail(err error) error {
	if err == nil {
		return nil
	}
	if g.metrics != nil {
		g.metrics.SpellFailuresTotal.Inc()
	}
	return fmt.Errorf("%w: %w", apperrors.ErrSpellCheck, err)
}
