package api

import (
	"net/http"
)

func (s *Server) handleResolveStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"window_seconds": int(s.cfg.ResolveStatsWindow.Seconds()),
		"stats":          s.resolveStats.Snapshot(),
		"queue_depth":    s.orchestrator.QueueDepth(),
		"jobs":           s.orchestrator.JobCount(),
	})
}
