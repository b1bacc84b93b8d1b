package http

import (
	"errors"
	"log/slog"
	"net/http"

	"zaakiyah/internal/core"
	"zaakiyah/internal/gateway"
	"zaakiyah/internal/storage"
)

// handleDonationHistory serves the donor's past donations from the backend,
// falling back to the local ledger when the backend is unreachable.
func (s *Server) handleDonationHistory(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r, 20, 100)

	result, err := s.gateway.ListDonations(r.Context(), page, limit)
	if err == nil {
		respondJSON(w, http.StatusOK, result)
		return
	}
	slog.WarnContext(r.Context(), "Gateway history unavailable, serving ledger",
		"error", err, "page", page)

	recent, lerr := s.donations.ListRecent(r.Context(), limit)
	if lerr != nil {
		slog.ErrorContext(r.Context(), "Ledger history fallback failed", "error", lerr)
		respondError(w, http.StatusBadGateway, "donation history unavailable")
		return
	}
	if recent == nil {
		recent = []core.Donation{}
	}
	respondJSON(w, http.StatusOK, gateway.DonationPage{
		Donations: recent,
		Page:      1,
		Limit:     limit,
		Total:     len(recent),
	})
}

func (s *Server) handleGetDonation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	donation, err := s.gateway.FindDonation(r.Context(), id)
	if err == nil {
		respondJSON(w, http.StatusOK, donation)
		return
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		respondError(w, http.StatusNotFound, "donation not found")
		return
	}
	slog.WarnContext(r.Context(), "Gateway donation lookup unavailable, serving ledger",
		"error", err, "donation_id", id)

	donation, lerr := s.donations.GetDonation(r.Context(), id)
	if errors.Is(lerr, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "donation not found")
		return
	}
	if lerr != nil {
		slog.ErrorContext(r.Context(), "Ledger donation fallback failed", "error", lerr)
		respondError(w, http.StatusBadGateway, "donation lookup unavailable")
		return
	}
	respondJSON(w, http.StatusOK, donation)
}
