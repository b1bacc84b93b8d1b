package core

import (
	"errors"
	"strings"
	"time"
)

const (
	DistributionEqual  DistributionMethod = "equal"
	DistributionManual DistributionMethod = "manual"
	DistributionUnset  DistributionMethod = ""
)

const (
	// PaymentMethodCard is the only gateway method currently enabled.
	PaymentMethodCard PaymentMethod = "card"
)

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationFailed    DonationStatus = "failed"
	DonationAbandoned DonationStatus = "abandoned"
)

type (
	DistributionMethod string

	PaymentMethod string

	DonationStatus string

	// Recipient is a catalog entry supplied by the donations backend.
	// Shortfall is server data; the engine never recomputes it.
	Recipient struct {
		ID              string `json:"id"`
		ApplicationID   string `json:"applicationId"`
		Name            string `json:"name"`
		Location        string `json:"location,omitempty"`
		AvatarURL       string `json:"avatar,omitempty"`
		RequestedAmount Money  `json:"requestedAmount"`
		ApprovedAmount  Money  `json:"approvedAmount,omitempty"`
		DisbursedAmount Money  `json:"disbursedAmount,omitempty"`
		TotalDonations  Money  `json:"totalDonations,omitempty"`
		Shortfall       Money  `json:"shortfall"`
	}

	// BasketItem is one recipient allocation inside a basket. There is at
	// most one item per recipient id.
	BasketItem struct {
		RecipientID       string    `json:"recipientId"`
		Recipient         Recipient `json:"recipient"`
		Amount            Money     `json:"amount"`
		ManuallyAllocated bool      `json:"isManuallyAllocated"`
	}

	// WatchlistItem is a recipient saved for later, independent of any
	// basket membership.
	WatchlistItem struct {
		ID          string    `json:"id"`
		RecipientID string    `json:"recipientId"`
		Recipient   Recipient `json:"recipient"`
		AddedAt     time.Time `json:"addedAt"`
	}

	// DonationRecipient is one line of a confirmed donation breakdown.
	DonationRecipient struct {
		RecipientID   string `json:"recipientId"`
		ApplicationID string `json:"applicationId"`
		Name          string `json:"name,omitempty"`
		Amount        Money  `json:"amount"`
	}

	// Donation is the server-confirmed record of a payment. Once its status
	// is completed the record is immutable.
	Donation struct {
		ID                 string              `json:"id"`
		Reference          string              `json:"paymentReference"`
		Status             DonationStatus      `json:"paymentStatus"`
		TotalAmount        Money               `json:"totalAmount"`
		ZaakiyahAmount     Money               `json:"zaakiyahAmount"`
		Anonymous          bool                `json:"isAnonymous"`
		DistributionMethod DistributionMethod  `json:"distributionMethod"`
		Recipients         []DonationRecipient `json:"recipients"`
		CreatedAt          time.Time           `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyRecipientID = errors.New("empty recipient id")
	ErrInvalidMethod    = errors.New("invalid distribution method")
	ErrInvalidStatus    = errors.New("invalid donation status")
)

func (m DistributionMethod) Validate() error {
	switch m {
	case DistributionEqual, DistributionManual, DistributionUnset:
		return nil
	}
	return ErrInvalidMethod
}

func (s DonationStatus) Validate() error {
	switch s {
	case DonationPending, DonationCompleted, DonationFailed, DonationAbandoned:
		return nil
	}
	return ErrInvalidStatus
}

// FullyFunded reports whether the recipient has no remaining shortfall.
func (r Recipient) FullyFunded() bool {
	return r.Shortfall.Cents <= 0
}

func (r Recipient) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyRecipientID
	}
	if r.RequestedAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (i BasketItem) Validate() error {
	if strings.TrimSpace(i.RecipientID) == "" {
		return ErrEmptyRecipientID
	}
	return i.Amount.Validate()
}

func (d Donation) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("empty donation id")
	}
	if err := d.Status.Validate(); err != nil {
		return err
	}
	if err := d.TotalAmount.Validate(); err != nil {
		return err
	}
	if err := d.DistributionMethod.Validate(); err != nil {
		return err
	}
	for _, r := range d.Recipients {
		if strings.TrimSpace(r.RecipientID) == "" {
			return ErrEmptyRecipientID
		}
		if err := r.Amount.Validate(); err != nil {
			return err
		}
	}
	return nil
}
