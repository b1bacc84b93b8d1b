package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"zaakiyah/internal/checkout"
	"zaakiyah/internal/core"
	"zaakiyah/internal/gateway"
)

type checkoutView struct {
	State       checkout.State    `json:"state"`
	DonationID  string            `json:"donationId,omitempty"`
	PaymentLink string            `json:"paymentLink,omitempty"`
	Receipt     *checkout.Receipt `json:"receipt,omitempty"`
}

func checkoutViewOf(co *checkout.Checkout) checkoutView {
	v := checkoutView{
		State:       co.State(),
		DonationID:  co.DonationID(),
		PaymentLink: co.PaymentLink(),
	}
	if receipt, ok := co.Receipt(); ok {
		v.Receipt = &receipt
	}
	return v
}

func (s *Server) handleCheckoutState(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	co := sess.checkout
	sess.mu.Unlock()

	respondJSON(w, http.StatusOK, checkoutViewOf(co))
}

// handleInitiateCheckout finalizes the basket and creates a payment session.
// The response carries the gateway link the client must redirect to. Reaching
// this with an empty basket answers 409 with a redirect hint back to
// recipient selection.
func (s *Server) handleInitiateCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentMethod core.PaymentMethod `json:"paymentMethod"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	sess.resetCheckoutIfDone(s.gateway, s.donations)
	co := sess.checkout
	sess.mu.Unlock()

	if err := co.Begin(); err != nil {
		s.respondCheckoutError(w, r, err)
		return
	}

	link, err := co.Initiate(r.Context(), req.PaymentMethod)
	if err != nil {
		s.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, checkoutView{
		State:       co.State(),
		DonationID:  co.DonationID(),
		PaymentLink: link,
	})
}

func (s *Server) handleCancelCheckout(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	co := sess.checkout
	sess.mu.Unlock()

	co.Cancel()
	respondJSON(w, http.StatusOK, checkoutViewOf(co))
}

// handleCallback is where the gateway redirect re-enters the app. It verifies
// the payment and answers with the receipt; a failed or pending payment keeps
// the basket and reports why.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(r.URL.Query().Get("reference"))
	donationID := strings.TrimSpace(r.URL.Query().Get("donation_id"))
	if reference == "" || donationID == "" {
		respondError(w, http.StatusBadRequest, "reference and donation_id are required")
		return
	}

	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	co := sess.checkout
	sess.mu.Unlock()

	receipt, err := co.Resume(r.Context(), reference, donationID)
	if err != nil {
		// A replayed callback for a finished checkout returns the
		// original receipt instead of an error.
		if errors.Is(err, checkout.ErrAlreadyCompleted) {
			if prev, ok := co.Receipt(); ok && prev.DonationID == donationID {
				respondJSON(w, http.StatusOK, checkoutView{State: co.State(), DonationID: donationID, Receipt: &prev})
				return
			}
		}
		s.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, checkoutView{
		State:      co.State(),
		DonationID: receipt.DonationID,
		Receipt:    &receipt,
	})
}

func (s *Server) respondCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyBasket):
		respondJSON(w, http.StatusConflict, struct {
			Error    string `json:"error"`
			Code     string `json:"code"`
			Redirect string `json:"redirect"`
		}{
			Error:    "basket is empty",
			Code:     "empty_basket",
			Redirect: "/api/recipients",
		})
	case errors.Is(err, checkout.ErrInitiationInFlight):
		respondErrorCode(w, http.StatusConflict, err.Error(), "initiation_in_flight")
	case errors.Is(err, checkout.ErrVerificationInFlight):
		respondErrorCode(w, http.StatusConflict, err.Error(), "verification_in_flight")
	case errors.Is(err, checkout.ErrAlreadyCompleted):
		respondErrorCode(w, http.StatusConflict, err.Error(), "already_completed")
	case errors.Is(err, checkout.ErrAttemptSuperseded):
		respondErrorCode(w, http.StatusConflict, err.Error(), "attempt_superseded")
	case errors.Is(err, checkout.ErrWrongState):
		respondErrorCode(w, http.StatusConflict, err.Error(), "wrong_state")
	case errors.Is(err, checkout.ErrUnsupportedMethod):
		respondErrorCode(w, http.StatusUnprocessableEntity, err.Error(), "unsupported_method")
	case errors.Is(err, checkout.ErrPaymentNotCompleted):
		respondErrorCode(w, http.StatusConflict, err.Error(), "payment_not_completed")
	default:
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			slog.ErrorContext(r.Context(), "Gateway rejected checkout operation",
				"status", apiErr.StatusCode, "code", apiErr.Code, "error", apiErr.Message)
			respondErrorCode(w, http.StatusBadGateway, "payment gateway rejected the request", apiErr.Code)
			return
		}
		slog.ErrorContext(r.Context(), "Checkout operation failed", "error", err)
		respondError(w, http.StatusBadGateway, "payment gateway unavailable")
	}
}
