// Package api — configuration endpoints.
package api

import (
	"net/http"

	"github.com/hucanghe/stock-analysis/internal/config"
)

// handleGetConfig returns the dashboard control defaults and bounds so the
// UI can render its index selector and sliders.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ControlsResponse{
			Indices:   s.catalog.Indices(),
			Window:    s.cfg.Dashboard.Window,
			MinWindow: s.cfg.Dashboard.MinWindow,
			MaxWindow: s.cfg.Dashboard.MaxWindow,
			TopN:      s.cfg.Dashboard.TopN,
			MinTopN:   s.cfg.Dashboard.MinTopN,
			MaxTopN:   s.cfg.Dashboard.MaxTopN,
		},
	})
}

// handleGetConfigSources returns the configured external data endpoints and
// where each value came from.
func (s *Server) handleGetConfigSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckSources(s.cfg),
	})
}
