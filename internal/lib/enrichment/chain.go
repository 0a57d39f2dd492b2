package enrichment

import (
	"context"
	"errors"
	"fmt"

	"github.com/dpup/prefab/logging"
)

// ErrNoGenerators is returned by an empty chain
var ErrNoGenerators = errors.New("no text generators configured")

type chain struct {
	generators []Generator
}

// NewChain returns a Generator that tries each generator in order until one succeeds
func NewChain(generators ...Generator) Generator {
	return &chain{generators: generators}
}

func (c *chain) Name() string { return "chain" }

func (c *chain) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if len(c.generators) == 0 {
		return "", ErrNoGenerators
	}

	var errs []error
	for _, g := range c.generators {
		text, err := g.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		logging.Warnw(ctx, "Text generator failed, trying next", "generator", g.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", g.Name(), err))
	}
	return "", errors.Join(errs...)
}
