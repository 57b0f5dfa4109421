package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/riptide-engine/riptide/internal/models"
	"github.com/riptide-engine/riptide/internal/streamapi"
)

// handleStreamNDJSON implements POST /stream/crawl (spec §4.7, §6).
func (s *Server) handleStreamNDJSON(w http.ResponseWriter, r *http.Request) {
	urls, opts, ok := s.decodeStreamRequest(w, r)
	if !ok {
		return
	}
	emitter := streamapi.NewNDJSONEmitter(w)
	_ = streamapi.Run(r.Context(), s.Orchestrator, urls, opts, emitter)
}

// handleStreamSSE implements GET /stream/crawl/sse, taking urls as repeated
// query parameters (spec §8 scenario 5: "?urls=U1&urls=U2").
func (s *Server) handleStreamSSE(w http.ResponseWriter, r *http.Request) {
	urls := r.URL.Query()["urls"]
	if len(urls) == 0 {
		writeError(w, models.NewError(models.KindValidation, "stream: urls must be non-empty", nil))
		return
	}
	opts := models.DefaultCrawlOptions()

	emitter := streamapi.NewSSEEmitter(w)
	_ = streamapi.Run(r.Context(), s.Orchestrator, urls, opts, emitter)
}

func (s *Server) decodeStreamRequest(w http.ResponseWriter, r *http.Request) ([]string, models.CrawlOptions, bool) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewError(models.KindValidation, "stream: malformed request body", err))
		return nil, models.CrawlOptions{}, false
	}
	if len(req.URLs) == 0 {
		writeError(w, models.NewError(models.KindValidation, "stream: urls must be non-empty", nil))
		return nil, models.CrawlOptions{}, false
	}
	opts := models.DefaultCrawlOptions()
	if req.Options != nil {
		opts = mergeOptions(opts, *req.Options)
	}
	return req.URLs, opts, true
}
