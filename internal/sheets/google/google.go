package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"zaakiyah/internal/core"
	ports "zaakiyah/internal/sheets"
)

// Client appends completed donations to a Google spreadsheet used as the
// organization's external ledger.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.LedgerAppender = (*Client)(nil)

// NewFromEnv creates a Sheets client using Service Account credentials.
// Required: SHEETS_SPREADSHEET_ID and either SHEETS_CREDENTIALS_JSON,
// SHEETS_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
// Optional: SHEETS_SHEET_NAME (default "Donations").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("SHEETS_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing SHEETS_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("SHEETS_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Donations"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(os.Getenv("SHEETS_CREDENTIALS_JSON"))
	credentialsFile := strings.TrimSpace(os.Getenv("SHEETS_CREDENTIALS_FILE"))
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case credentialsJSON != "":
		creds = []byte(credentialsJSON)
	case credentialsFile != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		creds = data
	default:
		return nil, errors.New("missing service account credentials (set SHEETS_CREDENTIALS_JSON, SHEETS_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// Append writes one donation row and returns the updated range as its
// reference. Columns: id, reference, created at, total, zaakiyah amount,
// distribution method, recipient count, anonymous.
func (c *Client) Append(ctx context.Context, d core.Donation) (string, error) {
	if d.ID == "" {
		return "", errors.New("donation id is empty")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row := []any{
		d.ID,
		d.Reference,
		d.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		d.TotalAmount.Units(),
		d.ZaakiyahAmount.Units(),
		string(d.DistributionMethod),
		len(d.Recipients),
		d.Anonymous,
	}
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	rng := fmt.Sprintf("%s!A:H", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Donation appended to sheet",
		"donation_id", d.ID,
		"range", ref)

	return ref, nil
}
