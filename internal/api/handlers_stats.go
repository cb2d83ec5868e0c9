package api

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":    s.sessions.Len(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"latency":     s.stats.Snapshot(),
	})
}
