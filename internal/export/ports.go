// Package export writes monthly summaries to report targets: local xlsx
// workbooks or a shared Google spreadsheet.
package export

import (
	"context"

	"hucha/internal/core"
)

// SummaryExporter writes one user's month summary to a report target.
type SummaryExporter interface {
	ExportMonthSummary(ctx context.Context, user core.User, sum core.MonthSummary) error
}
