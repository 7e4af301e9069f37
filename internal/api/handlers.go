package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/anirudhshenoy/nanobot/internal/providers"
)

type chatRequest struct {
	Model       string               `json:"model,omitempty"`
	Messages    []providers.Message  `json:"messages"`
	Tools       []providers.ToolDef  `json:"tools,omitempty"`
	MaxTokens   int                  `json:"maxTokens,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
}

// handleChat routes one chat request through the dispatcher. Backend
// failures still produce a 200: the error travels in the response body per
// the backend contract.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages is required")
		return
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.cfg.Defaults.MaxTokens
	}
	temperature := s.cfg.Defaults.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	resp := s.dispatcher.Chat(r.Context(), req.Messages, req.Tools, req.Model, maxTokens, temperature)
	writeJSON(w, http.StatusOK, resp)
}

// handleRouting returns the routing trace for a query without dispatching.
func (s *Server) handleRouting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.dispatcher.DescribeRouting(query))
}

// handleHealth returns the per-target health snapshot.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"targets":  s.health.Status(),
		"degraded": s.health.DegradedTargets(),
	})
}

type providerStatus struct {
	HasKey         bool   `json:"hasKey"`
	KeyFingerprint string `json:"keyFingerprint,omitempty"`
	Gateway        bool   `json:"gateway"`
	APIBase        string `json:"apiBase,omitempty"`
}

// handleStatus returns system status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	provStatus := make(map[string]providerStatus, len(s.cfg.Providers))
	for name, pc := range s.cfg.Providers {
		ps := providerStatus{
			HasKey:  pc.APIKey != "",
			APIBase: s.cfg.APIBaseForProvider(name, ""),
		}
		if spec := providers.FindByName(name); spec != nil {
			ps.Gateway = spec.Gateway
		}
		if pc.APIKey != "" {
			ps.KeyFingerprint = keyFingerprint(pc.APIKey)
		}
		provStatus[name] = ps
	}

	status := map[string]interface{}{
		"version":        s.version,
		"uptimeSeconds":  int(time.Since(s.startTime).Seconds()),
		"routingEnabled": s.cfg.Routing.Enabled,
		"defaultTarget":  s.cfg.DefaultTarget().String(),
		"lastProvider":   s.dispatcher.LastProvider(),
		"providers":      provStatus,
	}

	writeJSON(w, http.StatusOK, status)
}

// keyFingerprint returns a short blake2b digest of an API key so operators
// can tell keys apart without the status endpoint ever exposing them.
func keyFingerprint(key string) string {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(key))
	return fmt.Sprintf("%x", h.Sum(nil))
}
