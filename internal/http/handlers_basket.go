package http

import (
	"errors"
	"log/slog"
	"net/http"

	"zaakiyah/internal/basket"
	"zaakiyah/internal/core"
)

// basketView is the JSON shape of a donor's basket. Total is recomputed from
// the items on every request.
type basketView struct {
	Items              []core.BasketItem       `json:"items"`
	DistributionMethod core.DistributionMethod `json:"distributionMethod"`
	SupportZaakiyah    bool                    `json:"supportZaakiyah"`
	ZaakiyahAmount     core.Money              `json:"zaakiyahAmount"`
	IsAnonymous        bool                    `json:"isAnonymous"`
	TotalAmount        core.Money              `json:"totalAmount"`
	Count              int                     `json:"count"`
}

func viewOf(b *basket.Basket) basketView {
	snap := b.Snapshot()
	return basketView{
		Items:              snap.Items,
		DistributionMethod: snap.Method,
		SupportZaakiyah:    snap.SupportZaakiyah,
		ZaakiyahAmount:     snap.ZaakiyahAmount,
		IsAnonymous:        snap.Anonymous,
		TotalAmount:        snap.Total,
		Count:              len(snap.Items),
	}
}

func (s *Server) handleGetBasket(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	respondJSON(w, http.StatusOK, viewOf(sess.basket))
}

func (s *Server) handleAddToBasket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipient core.Recipient `json:"recipient"`
		Amount    *core.Money    `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.basket.Add(req.Recipient, req.Amount); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, viewOf(sess.basket))
}

func (s *Server) handleUpdateAmount(w http.ResponseWriter, r *http.Request) {
	recipientID := r.PathValue("recipientId")
	var req struct {
		Amount core.Money `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.basket.UpdateAmount(recipientID, req.Amount); err != nil {
		switch {
		case errors.Is(err, basket.ErrNotInBasket):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, viewOf(sess.basket))
}

func (s *Server) handleRemoveFromBasket(w http.ResponseWriter, r *http.Request) {
	recipientID := r.PathValue("recipientId")

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Removing something already absent is not an error.
	sess.basket.Remove(recipientID)
	respondJSON(w, http.StatusOK, viewOf(sess.basket))
}

func (s *Server) handleDistributeEqually(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TotalAmount core.Money `json:"totalAmount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.TotalAmount.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.basket.DistributeEqually(req.TotalAmount)
	respondJSON(w, http.StatusOK, viewOf(sess.basket))
}

func (s *Server) handleSetDistributionMethod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method core.DistributionMethod `json:"method"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.basket.SetDistributionMethod(req.Method); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, viewOf(sess.basket))
}

func (s *Server) handleSetSupport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SupportZaakiyah bool       `json:"supportZaakiyah"`
		Amount          core.Money `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SupportZaakiyah {
		if err := req.Amount.Validate(); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.basket.SetSupportZaakiyah(req.SupportZaakiyah, req.Amount)
	respondJSON(w, http.StatusOK, viewOf(sess.basket))
}

func (s *Server) handleSetAnonymous(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsAnonymous bool `json:"isAnonymous"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.basket.SetAnonymous(req.IsAnonymous)
	respondJSON(w, http.StatusOK, viewOf(sess.basket))
}

func (s *Server) handleClearBasket(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.basket.Clear()
	slog.InfoContext(r.Context(), "Basket cleared")
	respondJSON(w, http.StatusOK, viewOf(sess.basket))
}
