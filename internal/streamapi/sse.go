package streamapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/riptide-engine/riptide/internal/models"
)

// SSEEmitter writes "event: <kind>\ndata: <json>\n\n" frames, with
// keep-alives as SSE comment lines (spec §4.7 SSE protocol).
type SSEEmitter struct {
	w http.ResponseWriter
}

// NewSSEEmitter sets SSE headers (including CORS, per spec §4.7) and
// returns an emitter writing to w.
func NewSSEEmitter(w http.ResponseWriter) *SSEEmitter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	return &SSEEmitter{w: w}
}

func (e *SSEEmitter) Metadata(meta map[string]interface{}) error {
	return writeSSE(e.w, "metadata", meta)
}

func (e *SSEEmitter) Result(result models.CrawlResult) error {
	return writeSSE(e.w, "result", result)
}

func (e *SSEEmitter) Progress(done, total int) error {
	return writeSSE(e.w, "progress", map[string]interface{}{"done": done, "total": total})
}

func (e *SSEEmitter) Completion(stats models.BatchStatistics) error {
	return writeSSE(e.w, "completion", map[string]interface{}{"summary": stats})
}

func (e *SSEEmitter) Error(err error) error {
	return writeSSE(e.w, "error", map[string]interface{}{"message": err.Error()})
}

func (e *SSEEmitter) KeepAlive() error {
	if _, werr := fmt.Fprintf(e.w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); werr != nil {
		return werr
	}
	flush(e.w)
	return nil
}
