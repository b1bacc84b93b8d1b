package http

import (
	"net/http"

	"zaakiyah/internal/core"
)

type watchlistView struct {
	Items []core.WatchlistItem `json:"items"`
	Count int                  `json:"count"`
}

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	items := sess.watchlist.Items()
	if items == nil {
		items = []core.WatchlistItem{}
	}
	respondJSON(w, http.StatusOK, watchlistView{Items: items, Count: sess.watchlist.Len()})
}

func (s *Server) handleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipient core.Recipient `json:"recipient"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	added, err := sess.watchlist.Add(req.Recipient)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	items := sess.watchlist.Items()
	if items == nil {
		items = []core.WatchlistItem{}
	}
	respondJSON(w, status, watchlistView{Items: items, Count: sess.watchlist.Len()})
}

func (s *Server) handleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	recipientID := r.PathValue("recipientId")

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.watchlist.Remove(recipientID)
	items := sess.watchlist.Items()
	if items == nil {
		items = []core.WatchlistItem{}
	}
	respondJSON(w, http.StatusOK, watchlistView{Items: items, Count: sess.watchlist.Len()})
}
