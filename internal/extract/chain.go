package extract

import (
	"context"
	"fmt"

	"github.com/riptide-engine/riptide/internal/models"
)

// DefaultHighConfidenceThreshold is the early-exit bar (spec §4.5: "default
// 0.85").
const DefaultHighConfidenceThreshold = 0.85

// Chain runs Strategies in order, stopping early once one clears
// HighConfidenceThreshold, and otherwise returns the best-scoring result
// seen (spec §4.5 chain policy).
type Chain struct {
	Strategies              []Strategy
	HighConfidenceThreshold float64
}

// NewChain builds the default ordering: CSS first (cheapest, highest
// precision on well-formed markup), then regex (tolerant of broken HTML),
// then the native fallback (spec §4.5 describes WASM ahead of fallback;
// WASM participation is left to callers that wire a wasmpool-backed
// Strategy in front of this chain, since wasmpool.Pool's signature differs
// from the flat Strategy interface and is orchestrated by the pipeline).
func NewChain(strategies ...Strategy) *Chain {
	if len(strategies) == 0 {
		strategies = []Strategy{NewCSSStrategy(nil), NewRegexStrategy(nil), NewFallbackStrategy()}
	}
	return &Chain{Strategies: strategies, HighConfidenceThreshold: DefaultHighConfidenceThreshold}
}

// Run executes the chain and returns the first result to clear the
// threshold, or the best-scoring result if none do. If every strategy
// errors, it returns an extraction_failed error aggregating the causes.
func (c *Chain) Run(ctx context.Context, html []byte, baseURL string) (models.ExtractedDocument, error) {
	var best models.ExtractedDocument
	haveBest := false
	var errs []error

	for _, strategy := range c.Strategies {
		select {
		case <-ctx.Done():
			return models.ExtractedDocument{}, ctx.Err()
		default:
		}

		doc, err := strategy.Extract(ctx, html, baseURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name(), err))
			continue
		}
		if !haveBest || doc.Confidence > best.Confidence {
			best = doc
			haveBest = true
		}
		if doc.Confidence >= c.HighConfidenceThreshold {
			return doc, nil
		}
	}

	if haveBest {
		return best, nil
	}

	return models.ExtractedDocument{}, models.NewError(models.KindExtraction,
		fmt.Sprintf("extraction_failed: all %d strategies failed: %v", len(c.Strategies), errs), nil)
}
