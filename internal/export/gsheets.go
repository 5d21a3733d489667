package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"hucha/internal/core"
	applog "hucha/internal/log"
)

// GoogleCredentials carries service-account material. InlineJSON wins over
// File when both are set.
type GoogleCredentials struct {
	InlineJSON string
	File       string
}

// GoogleExporter writes month summaries to one shared spreadsheet. Each row
// of the Resumen sheet is keyed by (user, year, month); re-exports update
// the existing row in place.
type GoogleExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *applog.Logger
}

var _ SummaryExporter = (*GoogleExporter)(nil)

func NewGoogleExporter(ctx context.Context, spreadsheetID string, creds GoogleCredentials, logger *applog.Logger) (*GoogleExporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &GoogleExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(applog.ComponentExport),
	}, nil
}

func newSheetsService(ctx context.Context, creds GoogleCredentials) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case creds.InlineJSON != "":
		credentialsJSON = []byte(creds.InlineJSON)
	case creds.File != "":
		data, err := os.ReadFile(creds.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func (e *GoogleExporter) ExportMonthSummary(ctx context.Context, user core.User, sum core.MonthSummary) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := e.findRow(ctx, user.Name, sum.Year, sum.Month)
	if err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A%d:H%d", summarySheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		user.Name,
		sum.Year,
		sum.Month,
		sum.Income.InexactFloat64(),
		sum.Expenses.InexactFloat64(),
		sum.Savings.InexactFloat64(),
		sum.Balance.InexactFloat64(),
	}}}

	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d in sheet %s: %w", row, summarySheet, err)
	}

	e.logger.InfoContext(ctx, "Exported month summary to spreadsheet",
		applog.FieldUserID, user.ID,
		applog.FieldYear, sum.Year,
		applog.FieldMonth, sum.Month,
		"row", row)
	return nil
}

// findRow locates the row keyed by (userName, year, month), or the first
// free row when the month was never exported.
func (e *GoogleExporter) findRow(ctx context.Context, userName string, year, month int) (int, error) {
	rng := fmt.Sprintf("%s!A:C", summarySheet)
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read sheet %s: %w", summarySheet, err)
	}

	for i, row := range resp.Values {
		if len(row) < 3 {
			continue
		}
		if cellString(row[0]) == userName &&
			cellInt(row[1]) == year &&
			cellInt(row[2]) == month {
			return i + 1, nil
		}
	}
	return len(resp.Values) + 1, nil
}

func cellString(v any) string {
	s, _ := v.(string)
	return s
}

func cellInt(v any) int {
	switch n := v.(type) {
	case string:
		parsed, _ := strconv.Atoi(n)
		return parsed
	case float64:
		return int(n)
	}
	return 0
}
