package services

import (
	"context"
	"fmt"
	"log/slog"

	"zaakiyah/internal/amqp"
	"zaakiyah/internal/core"
	"zaakiyah/internal/storage"
)

// DonationService records verified donations across the SQLite ledger and the
// AMQP export queue. It backs checkout verification as its Recorder.
type DonationService struct {
	ledger     *storage.Ledger
	amqpClient *amqp.Client
}

func NewDonationService(ledger *storage.Ledger, amqpClient *amqp.Client) *DonationService {
	return &DonationService{
		ledger:     ledger,
		amqpClient: amqpClient,
	}
}

// RecordCompleted saves the donation locally first, then notifies the export
// worker. A publish failure never propagates: the ledger row stays pending
// and the worker's periodic scan picks it up.
func (s *DonationService) RecordCompleted(ctx context.Context, d core.Donation) error {
	if err := s.ledger.RecordCompleted(ctx, d); err != nil {
		return fmt.Errorf("record donation: %w", err)
	}

	if err := s.publishRecorded(ctx, d.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish donation recorded message",
			"donation_id", d.ID, "error", err)
	}

	return nil
}

// GetDonation reads one donation from the local ledger.
func (s *DonationService) GetDonation(ctx context.Context, id string) (core.Donation, error) {
	return s.ledger.GetDonation(ctx, id)
}

// ListRecent reads the newest ledger entries for the history view.
func (s *DonationService) ListRecent(ctx context.Context, limit int) ([]core.Donation, error) {
	return s.ledger.ListRecent(ctx, limit)
}

func (s *DonationService) publishRecorded(ctx context.Context, donationID string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping recorded message")
		return nil
	}
	return s.amqpClient.PublishDonationRecorded(ctx, donationID)
}

// Close closes both the ledger and the AMQP connection.
func (s *DonationService) Close() error {
	var errs []error

	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ledger: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close donation service: %v", errs)
	}

	return nil
}
