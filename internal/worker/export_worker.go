package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"

	"zaakiyah/internal/amqp"
	"zaakiyah/internal/sheets"
	"zaakiyah/internal/storage"
)

const exportMaxTries = 4

// ExportWorker copies recorded donations from the local ledger to the
// external sheet. Queue messages drive the fast path; a periodic pending scan
// covers anything the queue missed. Sheet appends retry with exponential
// backoff since the export runs outside any donor-facing request.
type ExportWorker struct {
	ledger    *storage.Ledger
	appender  sheets.LedgerAppender
	batchSize int
}

func NewExportWorker(ledger *storage.Ledger, appender sheets.LedgerAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		ledger:    ledger,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleRecordedMessage exports the single donation named by a queue message.
// A returned error nacks the delivery back onto the queue.
func (w *ExportWorker) HandleRecordedMessage(ctx context.Context, msg *amqp.DonationRecordedMessage) error {
	slog.InfoContext(ctx, "Processing recorded message", "donation_id", msg.ID)
	return w.exportDonation(ctx, msg.ID)
}

// ProcessPendingExports exports any donations the queue never delivered.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.ledger.ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, p := range pending {
		if err := w.exportDonation(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export donation", "donation_id", p.ID, "error", err)
		}
	}

	return nil
}

// StartupExportCheck drains a larger pending backlog once at worker start,
// recovering from missed messages or worker downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	pending, err := w.ledger.ListPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending exports for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, p := range pending {
		if err := w.exportDonation(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export donation during startup",
				"donation_id", p.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)

	return nil
}

func (w *ExportWorker) exportDonation(ctx context.Context, id string) error {
	donation, err := w.ledger.GetDonation(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Stale message for a row that never landed; nothing to retry.
		slog.WarnContext(ctx, "Donation not found in ledger, dropping", "donation_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get donation from ledger: %w", err)
	}

	op := func() (string, error) {
		return w.appender.Append(ctx, donation)
	}
	ref, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(exportMaxTries))
	if err != nil {
		if markErr := w.ledger.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "donation_id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.ledger.MarkExported(ctx, id); err != nil {
		// The append succeeded; the pending scan will re-export and the
		// sheet ends up with a duplicate row rather than a missing one.
		slog.ErrorContext(ctx, "Failed to mark as exported", "donation_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Donation exported",
		"donation_id", id,
		"sheet_ref", ref,
		"total_cents", donation.TotalAmount.Cents)

	return nil
}
