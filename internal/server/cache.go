package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Cache.Stats(r.Context())
	if err != nil {
		storageError(w, r, "cache.stats", err)
		return
	}
	writeOK(w, http.StatusOK, stats)
}

type clearCacheRequest struct {
	Pattern string `json:"pattern"`
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	var req clearCacheRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", nil)
			return
		}
	}

	if req.Pattern == "" {
		if err := s.deps.Cache.Clear(r.Context()); err != nil {
			storageError(w, r, "cache.clear", err)
			return
		}
		writeMessage(w, "Cache cleared")
		return
	}

	n, err := s.deps.Cache.Invalidate(r.Context(), req.Pattern)
	if err != nil {
		storageError(w, r, "cache.invalidate", err)
		return
	}
	writeMessage(w, fmt.Sprintf("Removed %d cache entries matching %q", n, req.Pattern))
}
