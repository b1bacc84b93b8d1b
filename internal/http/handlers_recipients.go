package http

import (
	"fmt"
	"log/slog"
	"net/http"
)

func (s *Server) handleListRecipients(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r, 20, 100)
	key := fmt.Sprintf("p%d-l%d", page, limit)

	if cached, ok := s.recipientCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Recipient page cache hit", "page", page, "limit", limit)
		respondJSON(w, http.StatusOK, cached)
		return
	}

	result, err := s.gateway.ListRecipients(r.Context(), page, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list recipients",
			"error", err, "page", page, "limit", limit)
		respondError(w, http.StatusBadGateway, "failed to load recipients")
		return
	}

	s.recipientCache.Set(key, result)
	respondJSON(w, http.StatusOK, result)
}
