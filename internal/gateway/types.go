package gateway

import (
	"encoding/json"
	"fmt"

	"zaakiyah/internal/core"
)

// APIResponse is the envelope every backend endpoint answers with. Data holds
// the endpoint-specific payload; Code/Message are populated on errors.
type APIResponse struct {
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message,omitempty"`
	Code      string          `json:"code,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// APIError is a backend-reported failure.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway error (HTTP %d): %s", e.StatusCode, e.Message)
}

// RecipientPage is one page of the recipient catalog.
type RecipientPage struct {
	Recipients []core.Recipient `json:"recipients"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int              `json:"total"`
}

// DonationPage is one page of a donor's history.
type DonationPage struct {
	Donations []core.Donation `json:"donations"`
	Page      int             `json:"page"`
	Limit     int             `json:"limit"`
	Total     int             `json:"total"`
}

// PaymentRecipient is one allocation line of a payment request.
type PaymentRecipient struct {
	RecipientID   string     `json:"recipientId"`
	ApplicationID string     `json:"applicationId"`
	Amount        core.Money `json:"amount"`
}

// InitiatePaymentRequest asks the backend to create a gateway payment session
// for a finalized basket. TotalAmount must equal the sum of the recipient
// amounts plus ZaakiyahAmount exactly.
type InitiatePaymentRequest struct {
	Recipients         []PaymentRecipient      `json:"recipients"`
	TotalAmount        core.Money              `json:"totalAmount"`
	ZaakiyahAmount     core.Money              `json:"zaakiyahAmount"`
	PaymentMethod      core.PaymentMethod      `json:"paymentMethod"`
	DistributionMethod core.DistributionMethod `json:"distributionMethod"`
	IsAnonymous        bool                    `json:"isAnonymous"`
}

// InitiatePaymentResponse carries the created session. The caller redirects
// the donor to PaymentLink; Reference comes back in the gateway callback.
type InitiatePaymentResponse struct {
	DonationID  string `json:"donationId"`
	PaymentLink string `json:"paymentLink"`
	Reference   string `json:"reference"`
}

type verifyPaymentRequest struct {
	DonationID string `json:"donationId"`
	Reference  string `json:"reference"`
}

// VerifyPaymentResponse reports the gateway-confirmed outcome of a payment.
type VerifyPaymentResponse struct {
	Status   core.DonationStatus `json:"status"`
	Donation core.Donation       `json:"donation"`
}
