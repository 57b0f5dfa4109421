package pipeline

import (
	"context"

	"github.com/riptide-engine/riptide/internal/models"
	"github.com/riptide-engine/riptide/internal/wasmpool"
)

// wasmStrategy adapts wasmpool.Pool's Extract(ctx, html, url, mode) onto
// the flat extract.Strategy interface so the sandboxed extractor can take
// its place in the ordinary strategy chain ahead of the native fallback
// (spec §4.5 lists WASM ahead of fallback in the chain).
type wasmStrategy struct {
	pool *wasmpool.Pool
	mode string
}

func newWASMStrategy(pool *wasmpool.Pool, mode string) *wasmStrategy {
	return &wasmStrategy{pool: pool, mode: mode}
}

func (w *wasmStrategy) Name() string { return "wasm" }

func (w *wasmStrategy) Extract(ctx context.Context, html []byte, baseURL string) (models.ExtractedDocument, error) {
	return w.pool.Extract(ctx, html, baseURL, w.mode)
}
