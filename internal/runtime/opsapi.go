package runtime

import (
	"encoding/json"
	"net/http"
	"strings"

	configpkg "github.com/luntra/eventflow/internal/runtime/config"
	transportpkg "github.com/luntra/eventflow/internal/runtime/transport"
)

// StartOpsAPIServer registers the operational API endpoints when enabled.
// The endpoints expose handler stats, job metrics, and the registered event
// types for dashboards and debugging.
func (s *Service) StartOpsAPIServer() {
	if !s.Conf.OpsAPIEnabled {
		return
	}

	port := s.Conf.OpsAPIPort
	if port == 0 {
		port = configpkg.DefaultOpsAPIPort
	}

	s.RegisterHTTPHandler(port, "/api/handlers", http.HandlerFunc(s.handleGetHandlers))
	s.RegisterHTTPHandler(port, "/api/metrics", http.HandlerFunc(s.handleGetMetrics))
	s.RegisterHTTPHandler(port, "/api/events", http.HandlerFunc(s.handleGetEvents))
}

func (s *Service) handleGetHandlers(w http.ResponseWriter, r *http.Request) {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()

	if done := s.writeAPIHeaders(w, r); done {
		return
	}

	if err := json.NewEncoder(w).Encode(s.handlers); err != nil {
		s.Logger.Error("Failed to encode handlers", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Service) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if done := s.writeAPIHeaders(w, r); done {
		return
	}

	snapshot := s.metrics.GetSnapshot()
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.Logger.Error("Failed to encode metrics snapshot", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Service) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if done := s.writeAPIHeaders(w, r); done {
		return
	}

	payload := struct {
		EventTypes   []string                  `json:"event_types"`
		Transport    string                    `json:"transport"`
		Capabilities transportpkg.Capabilities `json:"capabilities"`
	}{
		EventTypes:   s.registry.EventTypes(),
		Transport:    s.Conf.PubSubSystem,
		Capabilities: transportpkg.GetCapabilities(s.Conf.PubSubSystem),
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.Logger.Error("Failed to encode event types", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// writeAPIHeaders sets content type and CORS headers. It reports true when
// the request was a preflight that has been answered.
func (s *Service) writeAPIHeaders(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Content-Type", "application/json")

	if s.Conf != nil && len(s.Conf.OpsAPICORSAllowedOrigins) > 0 {
		origin := r.Header.Get("Origin")
		allowedOrigin := s.getAllowedCORSOrigin(origin)
		if allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// getAllowedCORSOrigin checks if the request origin is allowed and returns the appropriate
// Access-Control-Allow-Origin value.
func (s *Service) getAllowedCORSOrigin(requestOrigin string) string {
	if s.Conf == nil {
		return ""
	}
	for _, allowed := range s.Conf.OpsAPICORSAllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}
