package streamapi

import (
	"net/http"
	"time"

	"github.com/riptide-engine/riptide/internal/models"
)

// NDJSONEmitter writes one flat JSON object per line, each tagged with a
// "type" field, terminated with "\n" (spec §4.7 NDJSON protocol).
type NDJSONEmitter struct {
	w http.ResponseWriter
}

// NewNDJSONEmitter sets the NDJSON content type and returns an emitter
// writing to w.
func NewNDJSONEmitter(w http.ResponseWriter) *NDJSONEmitter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	return &NDJSONEmitter{w: w}
}

func (e *NDJSONEmitter) Metadata(meta map[string]interface{}) error {
	line := map[string]interface{}{"type": "metadata"}
	for k, v := range meta {
		line[k] = v
	}
	return writeJSONLine(e.w, line)
}

func (e *NDJSONEmitter) Result(result models.CrawlResult) error {
	return writeJSONLine(e.w, struct {
		Type string `json:"type"`
		models.CrawlResult
	}{Type: "result", CrawlResult: result})
}

func (e *NDJSONEmitter) Progress(done, total int) error {
	return writeJSONLine(e.w, map[string]interface{}{"type": "progress", "done": done, "total": total})
}

func (e *NDJSONEmitter) Completion(stats models.BatchStatistics) error {
	return writeJSONLine(e.w, map[string]interface{}{"type": "completion", "summary": stats})
}

func (e *NDJSONEmitter) Error(err error) error {
	return writeJSONLine(e.w, map[string]interface{}{"type": "error", "message": err.Error()})
}

func (e *NDJSONEmitter) KeepAlive() error {
	return writeJSONLine(e.w, map[string]interface{}{"type": "keep-alive", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}
