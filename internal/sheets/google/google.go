package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"smartspend/internal/core"
	ports "smartspend/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ports.RowMirror = (*Client)(nil)

// Options configures the Sheets mirror.
type Options struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile. When both are
	// empty GOOGLE_APPLICATION_CREDENTIALS is consulted.
	CredentialsJSON string
	CredentialsFile string
}

// valuesAPI is the slice of the Sheets API the mirror needs.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, values [][]any) error
	Append(ctx context.Context, rng string, values [][]any) error
	SheetID(ctx context.Context, title string) (int64, error)
	DeleteRow(ctx context.Context, sheetID int64, rowIndex int64) error
}

// Client mirrors expenses into a sheet, one row per expense with the ID in
// column A. Row 1 holds the header.
type Client struct {
	api   valuesAPI
	sheet string

	mu      sync.Mutex
	sheetID *int64
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = "Expenses"
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{api: &serviceAPI{svc: svc, spreadsheetID: opts.SpreadsheetID}, sheet: sheet}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(opts.CredentialsJSON))
	file := strings.TrimSpace(opts.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline JSON credentials")
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = raw
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// newHTTPClientWithPooling returns a client with bounded timeouts and a
// small keep-alive pool for the Sheets API host.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// UpsertExpense rewrites the expense's row or appends a new one.
func (c *Client) UpsertExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	ids, err := c.api.Get(ctx, c.sheet+"!A:A")
	if err != nil {
		return fmt.Errorf("read ids from %s: %w", c.sheet, err)
	}
	if len(ids) == 0 {
		if err := c.api.Update(ctx, c.sheet+"!A1:F1", [][]any{headerRow()}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	row := findRow(ids, e.ID)
	if row > 0 {
		rng := fmt.Sprintf("%s!A%d:F%d", c.sheet, row, row)
		if err := c.api.Update(ctx, rng, [][]any{rowValues(e)}); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		slog.DebugContext(ctx, "Updated mirrored row", "id", e.ID, "row", row)
		return nil
	}
	if err := c.api.Append(ctx, c.sheet+"!A:F", [][]any{rowValues(e)}); err != nil {
		return fmt.Errorf("append to %s: %w", c.sheet, err)
	}
	slog.DebugContext(ctx, "Appended mirrored row", "id", e.ID)
	return nil
}

// DeleteExpense removes the expense's row when present.
func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	ids, err := c.api.Get(ctx, c.sheet+"!A:A")
	if err != nil {
		return fmt.Errorf("read ids from %s: %w", c.sheet, err)
	}
	row := findRow(ids, id)
	if row <= 0 {
		slog.DebugContext(ctx, "Mirrored row already absent", "id", id)
		return nil
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	// DeleteDimension uses zero-based, end-exclusive indexes.
	if err := c.api.DeleteRow(ctx, sheetID, int64(row-1)); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	id, err := c.api.SheetID(ctx, c.sheet)
	if err != nil {
		return 0, fmt.Errorf("resolve sheet %s: %w", c.sheet, err)
	}
	c.sheetID = &id
	return id, nil
}

// serviceAPI adapts *gsheet.Service to valuesAPI.
type serviceAPI struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceAPI) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceAPI) Update(ctx context.Context, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

func (s *serviceAPI) Append(ctx context.Context, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (s *serviceAPI) SheetID(ctx context.Context, title string) (int64, error) {
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", title)
}

func (s *serviceAPI) DeleteRow(ctx context.Context, sheetID int64, rowIndex int64) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: rowIndex,
					EndIndex:   rowIndex + 1,
				},
			},
		}},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}
