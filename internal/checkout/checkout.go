// Package checkout drives one basket through the payment gateway handshake:
// initiation, the external redirect, and callback verification. The flow is
// modeled as an explicit resumable state machine keyed by donation id, so the
// callback re-entry can be unit-tested without a browser.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"zaakiyah/internal/basket"
	"zaakiyah/internal/core"
	"zaakiyah/internal/gateway"
	"zaakiyah/internal/log"
)

// State names one position in the checkout flow.
type State string

const (
	StateIdle             State = "idle"
	StateMethodSelecting  State = "method_selecting"
	StateInitiating       State = "initiating"
	StateAwaitingRedirect State = "awaiting_gateway_redirect"
	StateVerifying        State = "verifying"
	StateCompleted        State = "completed"
)

var (
	ErrEmptyBasket          = errors.New("basket is empty")
	ErrUnsupportedMethod    = errors.New("unsupported payment method")
	ErrInitiationInFlight   = errors.New("payment initiation already in flight")
	ErrVerificationInFlight = errors.New("payment verification already in flight")
	ErrAttemptSuperseded    = errors.New("checkout attempt superseded")
	ErrAlreadyCompleted     = errors.New("checkout already completed")
	ErrPaymentNotCompleted  = errors.New("payment not completed")
	ErrWrongState           = errors.New("operation not allowed in current state")
)

// Receipt summarizes a verified donation for the confirmation view.
type Receipt struct {
	DonationID     string     `json:"donationId"`
	RecipientCount int        `json:"recipientCount"`
	Total          core.Money `json:"totalAmount"`
}

// Recorder receives the confirmed donation after verification, for the local
// ledger and downstream export. A failing Recorder never fails the donor's
// checkout.
type Recorder interface {
	RecordCompleted(ctx context.Context, d core.Donation) error
}

// Checkout owns one basket's path to payment. A fresh idempotency key is
// generated per initiation attempt so a double submit cannot open two gateway
// sessions for the same basket. The basket stays mutable while a network call
// is in flight; the request carries the snapshot taken at initiation time.
type Checkout struct {
	mu       sync.Mutex
	gateway  gateway.Client
	recorder Recorder
	logger   *log.Logger

	basket  *basket.Basket
	state   State
	attempt int

	donationID  string
	reference   string
	paymentLink string
	receipt     *Receipt
}

func New(gw gateway.Client, b *basket.Basket, recorder Recorder, logger *log.Logger) *Checkout {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentCheckout)
	}
	return &Checkout{
		gateway:  gw,
		recorder: recorder,
		logger:   logger,
		basket:   b,
		state:    StateIdle,
	}
}

func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Checkout) DonationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.donationID
}

func (c *Checkout) PaymentLink() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paymentLink
}

// Receipt returns the confirmation summary, present only once completed.
func (c *Checkout) Receipt() (Receipt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.receipt == nil {
		return Receipt{}, false
	}
	return *c.receipt, true
}

// Begin moves an idle checkout to method selection. Reaching the payment step
// with an empty basket is not an error state; the caller redirects back to
// recipient selection instead, so this reports ErrEmptyBasket.
func (c *Checkout) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateInitiating:
		return ErrInitiationInFlight
	case StateVerifying:
		return ErrVerificationInFlight
	}
	if c.basket.Len() == 0 {
		return ErrEmptyBasket
	}
	c.state = StateMethodSelecting
	return nil
}

// Initiate snapshots the basket, asks the backend to create a payment session
// and, on success, hands back the link the donor must be redirected to. On
// failure the state returns to method selection with the basket untouched so
// the donor can retry.
func (c *Checkout) Initiate(ctx context.Context, method core.PaymentMethod) (string, error) {
	c.mu.Lock()
	if c.state == StateInitiating {
		c.mu.Unlock()
		return "", ErrInitiationInFlight
	}
	if c.state != StateMethodSelecting {
		c.mu.Unlock()
		return "", ErrWrongState
	}
	if method != core.PaymentMethodCard {
		c.mu.Unlock()
		return "", ErrUnsupportedMethod
	}
	if c.basket.Len() == 0 {
		c.mu.Unlock()
		return "", ErrEmptyBasket
	}

	req := snapshotRequest(c.basket, method)
	key := uuid.NewString()
	c.attempt++
	attempt := c.attempt
	c.state = StateInitiating
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Initiating payment session",
		log.FieldTotalCents, req.TotalAmount.Cents,
		log.FieldBasketSize, len(req.Recipients),
		"idempotency_key", key)

	resp, err := c.gateway.InitiatePayment(ctx, req, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt != attempt || c.state != StateInitiating {
		// The donor navigated away; the in-flight result is discarded.
		c.logger.WarnContext(ctx, "Discarding superseded initiation result", "attempt", attempt)
		return "", ErrAttemptSuperseded
	}
	if err != nil {
		c.state = StateMethodSelecting
		return "", fmt.Errorf("initiate payment: %w", err)
	}

	c.donationID = resp.DonationID
	c.reference = resp.Reference
	c.paymentLink = resp.PaymentLink
	c.state = StateAwaitingRedirect
	c.logger.InfoContext(ctx, "Payment session created, awaiting gateway redirect",
		log.FieldDonationID, resp.DonationID,
		log.FieldReference, resp.Reference)
	return resp.PaymentLink, nil
}

// Resume is the sole entry into verification: it models the browser coming
// back from the gateway with reference and donation_id query parameters. On a
// confirmed completion the basket is cleared and a receipt produced; any
// other outcome surfaces an error and returns to method selection so the same
// basket can be resubmitted.
func (c *Checkout) Resume(ctx context.Context, reference, donationID string) (Receipt, error) {
	c.mu.Lock()
	switch c.state {
	case StateCompleted:
		c.mu.Unlock()
		return Receipt{}, ErrAlreadyCompleted
	case StateInitiating:
		c.mu.Unlock()
		return Receipt{}, ErrInitiationInFlight
	case StateVerifying:
		c.mu.Unlock()
		return Receipt{}, ErrVerificationInFlight
	}
	if donationID == "" || reference == "" {
		c.mu.Unlock()
		return Receipt{}, ErrWrongState
	}
	// Adopt the callback's donation id: the session may have been rebuilt
	// since the redirect left the app.
	c.donationID = donationID
	c.reference = reference
	c.state = StateVerifying
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Verifying payment",
		log.FieldDonationID, donationID,
		log.FieldReference, reference)

	resp, err := c.gateway.VerifyPayment(ctx, donationID, reference)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateMethodSelecting
		return Receipt{}, fmt.Errorf("verify payment: %w", err)
	}
	if resp.Status != core.DonationCompleted {
		c.state = StateMethodSelecting
		c.logger.WarnContext(ctx, "Payment not completed",
			log.FieldDonationID, donationID,
			"status", string(resp.Status))
		return Receipt{}, fmt.Errorf("%w: status %q", ErrPaymentNotCompleted, resp.Status)
	}

	receipt := Receipt{
		DonationID:     donationID,
		RecipientCount: len(resp.Donation.Recipients),
		Total:          resp.Donation.TotalAmount,
	}
	if receipt.RecipientCount == 0 || receipt.Total.IsZero() {
		snap := c.basket.Snapshot()
		if receipt.RecipientCount == 0 {
			receipt.RecipientCount = len(snap.Items)
		}
		if receipt.Total.IsZero() {
			receipt.Total = snap.Total
		}
	}

	c.basket.Clear()
	c.receipt = &receipt
	c.state = StateCompleted
	c.logger.InfoContext(ctx, "Payment verified, basket cleared",
		log.FieldDonationID, donationID,
		log.FieldTotalCents, receipt.Total.Cents,
		"recipient_count", receipt.RecipientCount)

	if c.recorder != nil {
		if err := c.recorder.RecordCompleted(ctx, resp.Donation); err != nil {
			// The donor's checkout already succeeded; the ledger worker
			// will pick the donation up on its pending scan.
			c.logger.ErrorContext(ctx, "Failed to record completed donation",
				log.FieldDonationID, donationID,
				log.FieldError, err)
		}
	}

	return receipt, nil
}

// Cancel returns to method selection, e.g. when the donor closes the payment
// prompt. An in-flight initiation is not interrupted; its result is discarded
// when it lands.
func (c *Checkout) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCompleted {
		return
	}
	if c.state == StateInitiating {
		c.attempt++ // invalidate the in-flight attempt
	}
	c.state = StateMethodSelecting
}

// snapshotRequest builds the gateway request from one basket snapshot, so the
// submitted total equals the sum of the submitted allocations even while the
// donor keeps editing the basket.
func snapshotRequest(b *basket.Basket, method core.PaymentMethod) gateway.InitiatePaymentRequest {
	snap := b.Snapshot()
	recipients := make([]gateway.PaymentRecipient, len(snap.Items))
	for i, item := range snap.Items {
		recipients[i] = gateway.PaymentRecipient{
			RecipientID:   item.RecipientID,
			ApplicationID: item.Recipient.ApplicationID,
			Amount:        item.Amount,
		}
	}
	return gateway.InitiatePaymentRequest{
		Recipients:         recipients,
		TotalAmount:        snap.Total,
		ZaakiyahAmount:     snap.ZaakiyahAmount,
		PaymentMethod:      method,
		DistributionMethod: snap.Method,
		IsAnonymous:        snap.Anonymous,
	}
}
