package server

import (
	"encoding/json"
	"net/http"
	"time"

	"driftline/warden/pkg/cache"
	"driftline/warden/pkg/governance"
	"driftline/warden/pkg/ledger"
)

// admission check

func (s *Server) handleAdmissionCheck(w http.ResponseWriter, r *http.Request) {
	var req governance.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrganizationID == "" || req.Provider == "" || req.Model == "" {
		writeError(w, http.StatusBadRequest, "organizationId, provider, and model are required")
		return
	}

	verdict := s.controller.Check(r.Context(), req)
	if !verdict.Allowed {
		writeJSON(w, http.StatusTooManyRequests, verdict)
		return
	}

	// The caller is now committed to issuing the provider call; it must
	// report completion via /v1/requests/complete on every terminal path.
	s.controller.Begin(req.OrganizationID)
	writeJSON(w, http.StatusOK, verdict)
}

// request completion

type completeRequest struct {
	OrganizationID string  `json:"organizationId"`
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	TokensIn       int     `json:"tokensIn"`
	TokensOut      int     `json:"tokensOut"`
	CostUSD        float64 `json:"costUsd"`
}

type completeResponse struct {
	Recorded bool    `json:"recorded"`
	CostUSD  float64 `json:"costUsd"`
}

// handleRequestComplete closes the request lifecycle: the concurrency slot
// is released unconditionally, and a billed ledger entry is appended when
// a provider call actually happened (any tokens or cost reported). Aborted
// requests report zeros and only release their slot.
func (s *Server) handleRequestComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrganizationID == "" {
		writeError(w, http.StatusBadRequest, "organizationId is required")
		return
	}

	s.controller.Finish(req.OrganizationID)

	resp := completeResponse{}
	if req.TokensIn > 0 || req.TokensOut > 0 || req.CostUSD > 0 {
		cost := req.CostUSD
		if cost <= 0 {
			cost = s.estimator.Estimate(req.Provider, req.Model, req.TokensIn, req.TokensOut)
		}

		entry := ledger.NewEntry(req.OrganizationID, req.Provider, req.Model,
			req.TokensIn, req.TokensOut, cost)
		if err := s.ledger.Append(r.Context(), entry); err != nil {
			s.logger.Error("failed to append ledger entry",
				"organization", req.OrganizationID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to record usage")
			return
		}
		resp.Recorded = true
		resp.CostUSD = cost
	}

	writeJSON(w, http.StatusOK, resp)
}

// cache endpoints

type cacheLookupRequest struct {
	OrganizationID string `json:"organizationId"`

	// Digest may be supplied directly; otherwise it is computed from the
	// request description below.
	Digest string `json:"digest,omitempty"`

	Provider string          `json:"provider,omitempty"`
	Model    string          `json:"model,omitempty"`
	Messages []cache.Message `json:"messages,omitempty"`
	Params   cache.Params    `json:"params,omitempty"`
}

func (s *Server) handleCacheLookup(w http.ResponseWriter, r *http.Request) {
	var req cacheLookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrganizationID == "" {
		writeError(w, http.StatusBadRequest, "organizationId is required")
		return
	}

	digest := req.Digest
	if digest == "" {
		if req.Provider == "" || req.Model == "" || len(req.Messages) == 0 {
			writeError(w, http.StatusBadRequest, "either digest or provider, model, and messages are required")
			return
		}
		digest = cache.Key(req.Provider, req.Model, req.Messages, req.Params)
	}

	result := s.cache.Lookup(r.Context(), req.OrganizationID, digest)
	writeJSON(w, http.StatusOK, struct {
		Digest string `json:"digest"`
		cache.LookupResult
	}{Digest: digest, LookupResult: result})
}

type cacheStoreRequest struct {
	OrganizationID string `json:"organizationId"`

	Digest   string          `json:"digest,omitempty"`
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
	Messages []cache.Message `json:"messages,omitempty"`
	Params   cache.Params    `json:"params,omitempty"`

	Payload   string  `json:"payload"`
	TokensIn  int     `json:"tokensIn"`
	TokensOut int     `json:"tokensOut"`
	CostUSD   float64 `json:"costUsd"`
	LatencyMS int64   `json:"latencyMs"`
}

func (s *Server) handleCacheStore(w http.ResponseWriter, r *http.Request) {
	var req cacheStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrganizationID == "" || req.Provider == "" || req.Model == "" {
		writeError(w, http.StatusBadRequest, "organizationId, provider, and model are required")
		return
	}
	if req.Payload == "" {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	digest := req.Digest
	if digest == "" {
		if len(req.Messages) == 0 {
			writeError(w, http.StatusBadRequest, "either digest or messages are required")
			return
		}
		digest = cache.Key(req.Provider, req.Model, req.Messages, req.Params)
	}

	stored := s.cache.Store(r.Context(), req.OrganizationID, &cache.Entry{
		Digest:    digest,
		Provider:  req.Provider,
		Model:     req.Model,
		Payload:   req.Payload,
		TokensIn:  req.TokensIn,
		TokensOut: req.TokensOut,
		CostUSD:   req.CostUSD,
		LatencyMS: req.LatencyMS,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"stored": stored,
		"digest": digest,
	})
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	digest := r.PathValue("digest")
	if digest == "" {
		writeError(w, http.StatusBadRequest, "digest is required")
		return
	}

	existed, err := s.cache.Invalidate(r.Context(), digest)
	if err != nil {
		s.logger.Error("cache invalidation failed", "digest", digest, "error", err)
		writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "no cache entry for digest")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"invalidated": true})
}

// status surface

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	organizationID := r.PathValue("org")
	if organizationID == "" {
		writeError(w, http.StatusBadRequest, "organization is required")
		return
	}

	status, err := s.controller.Snapshot(r.Context(), organizationID)
	if err != nil {
		s.logger.Error("status snapshot failed",
			"organization", organizationID, "error", err)
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*governance.Status
		Cache cache.OrgStats `json:"cache"`
	}{Status: status, Cache: s.cache.Stats(organizationID)})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
