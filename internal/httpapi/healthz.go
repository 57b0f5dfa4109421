package httpapi

import (
	"net/http"
	"time"
)

type healthzResponse struct {
	Status       string          `json:"status"`
	Version      string          `json:"version"`
	Timestamp    string          `json:"timestamp"`
	UptimeSecs   float64         `json:"uptime"`
	Dependencies map[string]bool `json:"dependencies"`
}

// handleHealthz reports 200 when every registered dependency check passes,
// 503 otherwise (spec §6: "503 when any core dependency is unhealthy").
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]bool, len(s.Dependencies))
	allHealthy := true
	for name, check := range s.Dependencies {
		ok := check()
		deps[name] = ok
		if !ok {
			allHealthy = false
		}
	}

	status := "ok"
	code := http.StatusOK
	if !allHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, healthzResponse{
		Status:       status,
		Version:      s.Version,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		UptimeSecs:   time.Since(s.StartedAt).Seconds(),
		Dependencies: deps,
	})
}
