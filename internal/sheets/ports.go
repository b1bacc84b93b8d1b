package sheets

import (
	"context"

	"zaakiyah/internal/core"
)

// Ports for outbound export adapters.
type (
	// LedgerAppender writes one completed donation to the external ledger
	// and returns a row reference for the audit log.
	LedgerAppender interface {
		Append(ctx context.Context, d core.Donation) (rowRef string, err error)
	}
)
