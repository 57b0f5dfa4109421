package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/riptide-engine/riptide/internal/models"
)

type deepSearchRequest struct {
	Query          string               `json:"query"`
	Limit          int                  `json:"limit,omitempty"`
	Country        string               `json:"country,omitempty"`
	Locale         string               `json:"locale,omitempty"`
	IncludeContent bool                 `json:"include_content,omitempty"`
	CrawlOptions   *models.CrawlOptions `json:"crawl_options,omitempty"`
}

type deepSearchResponse struct {
	Query            string                `json:"query"`
	URLsFound        int                   `json:"urls_found"`
	URLsCrawled      int                   `json:"urls_crawled"`
	Results          []models.SearchResult `json:"results"`
	Status           string                `json:"status"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
}

// handleDeepSearch implements POST /deepsearch: resolve a query into
// candidate URLs via s.Search, then run them through the orchestrator,
// optionally attaching extracted content (spec §6; ranking itself is out
// of scope per spec §1 Non-goals — s.Search supplies the candidate list).
func (s *Server) handleDeepSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req deepSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewError(models.KindValidation, "deepsearch: malformed request body", err))
		return
	}
	if req.Query == "" {
		writeError(w, models.NewError(models.KindValidation, "deepsearch: query must be non-empty", nil))
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	if s.Search == nil {
		writeJSON(w, http.StatusOK, deepSearchResponse{
			Query: req.Query, Status: "no_search_backend",
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		})
		return
	}

	candidates := s.Search(r.Context(), req.Query, req.Limit)

	opts := models.DefaultCrawlOptions()
	if req.CrawlOptions != nil {
		opts = mergeOptions(opts, *req.CrawlOptions)
	}

	results := make([]models.SearchResult, 0, len(candidates))
	if len(candidates) > 0 {
		crawled, _ := s.Orchestrator.ExecuteBatch(r.Context(), candidates, opts)
		for _, res := range crawled {
			sr := models.SearchResult{URL: res.URL}
			if res.Document != nil {
				sr.Title = res.Document.Title
				sr.Snippet = snippet(res.Document.Text, 240)
				if req.IncludeContent {
					sr.Content = res.Document
				}
			}
			results = append(results, sr)
		}
	}

	writeJSON(w, http.StatusOK, deepSearchResponse{
		Query:            req.Query,
		URLsFound:        len(candidates),
		URLsCrawled:      len(results),
		Results:          results,
		Status:           "ok",
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
}

func snippet(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
