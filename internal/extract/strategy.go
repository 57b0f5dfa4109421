// Package extract implements the extraction strategy chain (spec §4.5):
// CSS, regex, WASM, and native-fallback strategies, confidence-ordered with
// early exit.
package extract

import (
	"context"

	"github.com/riptide-engine/riptide/internal/models"
)

// Strategy is the capability interface every extraction strategy implements
// in place of deep inheritance. Extract returns the document together with
// its confidence score; the interface has no separate method that scores
// HTML without extracting it.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, html []byte, baseURL string) (models.ExtractedDocument, error)
}

// Result pairs a strategy's name with its produced document, used while the
// chain is still deciding whether to keep searching.
type Result struct {
	Strategy   string
	Document   models.ExtractedDocument
	Err        error
}
