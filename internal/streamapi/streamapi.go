// Package streamapi unifies NDJSON, SSE, and JSON emission over the
// pipeline orchestrator's streaming results, with keep-alives and a
// completion summary (spec §4.7).
package streamapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/riptide-engine/riptide/internal/models"
	"github.com/riptide-engine/riptide/internal/pipeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// KeepAliveInterval is how long the driver waits with no result before
// emitting a keep-alive line/comment, per spec §4.7.
const KeepAliveInterval = 15 * time.Second

// Emitter is the narrow capability the driver needs from a wire protocol;
// NDJSON and SSE each implement it over an http.ResponseWriter.
type Emitter interface {
	Metadata(meta map[string]interface{}) error
	Result(result models.CrawlResult) error
	Progress(done, total int) error
	Completion(stats models.BatchStatistics) error
	Error(err error) error
	KeepAlive() error
}

// Run drives orchestrator.ExecuteStream and fans its output through
// emitter: metadata first, then one result event per URL as it completes,
// progress ticks, a keep-alive on idle, and a completion event with the
// aggregate summary last (spec §4.7, §8 scenario 5's event ordering).
func Run(ctx context.Context, orchestrator *pipeline.Orchestrator, urls []string, opts models.CrawlOptions, emitter Emitter) error {
	if err := emitter.Metadata(map[string]interface{}{
		"total_urls": len(urls),
		"started_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}

	resultCh := make(chan models.CrawlResult, len(urls))
	doneCh := make(chan models.BatchStatistics, 1)

	go func() {
		stats := orchestrator.ExecuteStream(ctx, urls, opts, func(r models.CrawlResult) {
			resultCh <- r
		})
		close(resultCh)
		doneCh <- stats
	}()

	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	completed := 0
	for {
		select {
		case result, ok := <-resultCh:
			if !ok {
				stats := <-doneCh
				return emitter.Completion(stats)
			}
			completed++
			ticker.Reset(KeepAliveInterval)
			if err := emitter.Result(result); err != nil {
				return err
			}
			if err := emitter.Progress(completed, len(urls)); err != nil {
				return err
			}
		case <-ticker.C:
			if err := emitter.KeepAlive(); err != nil {
				return err
			}
		case <-ctx.Done():
			return emitter.Error(ctx.Err())
		}
	}
}

// flusher is satisfied by http.ResponseWriter in every real server; tests
// may supply a no-op.
type flusher interface {
	Flush()
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(flusher); ok {
		f.Flush()
	}
}

func writeJSONLine(w http.ResponseWriter, v interface{}) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(encoded); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return err
	}
	flush(w)
	return nil
}

func writeSSE(w http.ResponseWriter, event string, v interface{}) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, encoded); err != nil {
		return err
	}
	flush(w)
	return nil
}
