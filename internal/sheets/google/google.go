package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"finance/internal/core"
	flog "finance/internal/log"
	ports "finance/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultSheetName = "Transactions"
	lastColumn       = "F"
	// Cells are stored as typed, never parsed as formulas.
	valueInputOption = "RAW"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.TransactionMirror = (*Client)(nil)

// New creates a Sheets client authenticated with service account
// credentials. sheetName defaults to "Transactions".
func New(ctx context.Context, spreadsheetID, sheetName string, credentialsJSON []byte) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// LoadCredentials returns the inline JSON when set, otherwise the contents
// of file.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)

	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func (c *Client) Upsert(ctx context.Context, tx core.Transaction) error {
	if tx.ID <= 0 {
		return fmt.Errorf("cannot mirror transaction without id")
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.locate(ctx, tx.ID)
	if err != nil {
		return err
	}

	vr := &gsheet.ValueRange{Values: [][]any{toRow(tx)}}

	if row == 0 {
		rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption(valueInputOption).
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append transaction %d to %s: %w", tx.ID, c.sheetName, err)
		}
		slog.InfoContext(ctx, "Appended transaction to sheet", flog.FieldID, tx.ID, "sheet", c.sheetName)
		return nil
	}

	rng := rowRange(c.sheetName, row)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Updated transaction in sheet", flog.FieldID, tx.ID, "range", rng)
	return nil
}

func (c *Client) Remove(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.locate(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		slog.DebugContext(ctx, "Transaction not mirrored, nothing to remove", flog.FieldID, id)
		return nil
	}

	rng := rowRange(c.sheetName, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Cleared transaction from sheet", flog.FieldID, id, "range", rng)
	return nil
}

// locate returns the 1-based row holding id, or 0.
func (c *Client) locate(ctx context.Context, id int64) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	return findRow(resp.Values, id), nil
}

// findRow scans the id column and returns the 1-based row of id, or 0.
// Header and blank rows never match.
func findRow(values [][]any, id int64) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
		if err == nil && v == id {
			return i + 1
		}
	}
	return 0
}

// toRow lays out tx as columns A..F.
func toRow(tx core.Transaction) []any {
	return []any{
		tx.ID,
		string(tx.Type),
		tx.Amount,
		tx.Category,
		tx.Date.String(),
		tx.Description,
	}
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
}
