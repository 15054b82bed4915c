package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tally/internal/config"
	"tally/internal/core"
	ports "tally/internal/sheets"
)

// Client appends ledger rows to a Google spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.TransactionAppender = (*Client)(nil)

// New creates a Sheets client from the export section of the
// configuration. OAuth client credentials and the refresh token can
// each come from a file or inline JSON.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.ExportEnabled() {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	clientJSON, err := readCredential(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials: %w", err)
	}
	tokenJSON, err := readCredential(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	oauthCfg, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client config: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	httpClient := oauthCfg.Client(ctx, &token)
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets client initialized",
		"component", "sheets",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     cfg.GoogleSheetName,
	}, nil
}

func readCredential(inline, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return b, nil
	default:
		return nil, errors.New("no file or inline JSON configured")
	}
}

// Append writes one ledger row below the existing data and returns the
// updated range as the row reference.
func (c *Client) Append(ctx context.Context, row ports.Row) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	amount := core.Money{Cents: row.AmountCents}.Units()
	vr := &gsheet.ValueRange{Values: [][]any{{
		row.Date.Format("2006-01-02"),
		row.Type,
		row.Description,
		amount,
		row.Wallet,
		row.Category,
		row.Notes,
	}}}

	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	if ref == "" {
		ref = rng
	}
	return ref, nil
}
