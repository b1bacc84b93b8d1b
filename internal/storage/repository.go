package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zaakiyah/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a donation id has no ledger row.
var ErrNotFound = errors.New("donation not found")

// Export states a recorded donation moves through.
const (
	ExportPending  = "pending"
	ExportExported = "exported"
	ExportError    = "error"
)

// Ledger is the local record of completed donations. Rows are immutable once
// written; only the export bookkeeping columns change afterwards.
type Ledger struct {
	db *sql.DB
}

func NewLedger(dbPath string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// RecordCompleted writes a verified donation and its per-recipient breakdown
// in one transaction. Re-recording the same donation id is a no-op, so the
// gateway callback and a replayed queue message cannot double-insert.
func (l *Ledger) RecordCompleted(ctx context.Context, d core.Donation) error {
	if d.ID == "" {
		return errors.New("donation id is empty")
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO donations
			(id, reference, status, total_cents, zaakiyah_cents, anonymous, distribution_method, recipient_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Reference, string(d.Status), d.TotalAmount.Cents, d.ZaakiyahAmount.Cents,
		boolToInt(d.Anonymous), string(d.DistributionMethod), len(d.Recipients), createdAt)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already recorded.
		return nil
	}

	for _, r := range d.Recipients {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO donation_recipients (donation_id, recipient_id, name, amount_cents)
			VALUES (?, ?, ?, ?)`,
			d.ID, r.RecipientID, r.Name, r.Amount.Cents)
		if err != nil {
			return fmt.Errorf("insert donation recipient: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetDonation loads one donation with its recipient breakdown.
func (l *Ledger) GetDonation(ctx context.Context, id string) (core.Donation, error) {
	var (
		d              core.Donation
		status, method string
		anonymous      int
		totalCents     int64
		zaakiyahCents  int64
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT id, reference, status, total_cents, zaakiyah_cents, anonymous, distribution_method, created_at
		FROM donations WHERE id = ?`, id).Scan(
		&d.ID, &d.Reference, &status, &totalCents, &zaakiyahCents, &anonymous, &method, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Donation{}, ErrNotFound
	}
	if err != nil {
		return core.Donation{}, fmt.Errorf("get donation: %w", err)
	}

	d.Status = core.DonationStatus(status)
	d.DistributionMethod = core.DistributionMethod(method)
	d.Anonymous = anonymous != 0
	d.TotalAmount = core.Money{Cents: totalCents}
	d.ZaakiyahAmount = core.Money{Cents: zaakiyahCents}

	rows, err := l.db.QueryContext(ctx, `
		SELECT recipient_id, name, amount_cents
		FROM donation_recipients WHERE donation_id = ?`, id)
	if err != nil {
		return core.Donation{}, fmt.Errorf("get donation recipients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r     core.DonationRecipient
			cents int64
		)
		if err := rows.Scan(&r.RecipientID, &r.Name, &cents); err != nil {
			return core.Donation{}, fmt.Errorf("scan donation recipient: %w", err)
		}
		r.Amount = core.Money{Cents: cents}
		d.Recipients = append(d.Recipients, r)
	}
	if err := rows.Err(); err != nil {
		return core.Donation{}, fmt.Errorf("iterate donation recipients: %w", err)
	}

	return d, nil
}

// ListRecent returns the newest donations first, without recipient breakdowns.
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]core.Donation, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, reference, status, total_cents, zaakiyah_cents, anonymous, distribution_method, created_at
		FROM donations ORDER BY created_at DESC LIMIT ?`, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent donations: %w", err)
	}
	defer rows.Close()

	var donations []core.Donation
	for rows.Next() {
		var (
			d              core.Donation
			status, method string
			anonymous      int
			totalCents     int64
			zaakiyahCents  int64
		)
		if err := rows.Scan(&d.ID, &d.Reference, &status, &totalCents, &zaakiyahCents, &anonymous, &method, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		d.Status = core.DonationStatus(status)
		d.DistributionMethod = core.DistributionMethod(method)
		d.Anonymous = anonymous != 0
		d.TotalAmount = core.Money{Cents: totalCents}
		d.ZaakiyahAmount = core.Money{Cents: zaakiyahCents}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return donations, nil
}

// PendingExport is the minimal row the export worker needs.
type PendingExport struct {
	ID        string
	CreatedAt time.Time
}

// ListPendingExport returns donations not yet written to the external sheet,
// oldest first.
func (l *Ledger) ListPendingExport(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, created_at FROM donations
		WHERE export_state = ? ORDER BY created_at ASC LIMIT ?`,
		ExportPending, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()

	var pending []PendingExport
	for rows.Next() {
		var p PendingExport
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending export: %w", err)
	}
	return pending, nil
}

// MarkExported records a successful sheet append for a donation.
func (l *Ledger) MarkExported(ctx context.Context, id string) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE donations SET export_state = ?, exported_at = ? WHERE id = ?`,
		ExportExported, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

// MarkExportError flags a donation whose export kept failing. The periodic
// scan skips errored rows; an operator requeues them.
func (l *Ledger) MarkExportError(ctx context.Context, id string) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE donations SET export_state = ? WHERE id = ?`,
		ExportError, id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
