package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"hucha/internal/core"
	applog "hucha/internal/log"
)

const summarySheet = "Resumen"

var summaryHeader = []string{"Mes", "Ingresos", "Gastos", "Ahorro", "Balance"}

// XLSXExporter maintains one workbook per user and year under outputDir.
// The Resumen sheet holds one row per month; each exported month also gets
// its own sheet with the category breakdown.
type XLSXExporter struct {
	outputDir string
	logger    *applog.Logger

	// Serializes read-modify-write cycles on the workbook files.
	mu sync.Mutex
}

var _ SummaryExporter = (*XLSXExporter)(nil)

func NewXLSXExporter(outputDir string, logger *applog.Logger) (*XLSXExporter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &XLSXExporter{
		outputDir: outputDir,
		logger:    logger.WithComponent(applog.ComponentExport),
	}, nil
}

// WorkbookPath returns where the workbook for (user, year) lives.
func (e *XLSXExporter) WorkbookPath(user core.User, year int) string {
	return filepath.Join(e.outputDir, fmt.Sprintf("resumen-%s-%d.xlsx", slugify(user.Name), year))
}

func (e *XLSXExporter) ExportMonthSummary(ctx context.Context, user core.User, sum core.MonthSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	path := e.WorkbookPath(user, sum.Year)

	f, err := excelize.OpenFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("open workbook %s: %w", path, err)
		}
		f = excelize.NewFile()
		if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
			return fmt.Errorf("rename default sheet: %w", err)
		}
		for i, h := range summaryHeader {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellValue(summarySheet, cell, h); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
		}
	}
	defer f.Close()

	if err := e.writeMonthRow(f, sum); err != nil {
		return err
	}
	if err := e.writeCategorySheet(f, sum); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}

	e.logger.InfoContext(ctx, "Exported month summary",
		applog.FieldUserID, user.ID,
		applog.FieldYear, sum.Year,
		applog.FieldMonth, sum.Month,
		"path", path)
	return nil
}

// writeMonthRow puts the month on row month+1, so January is row 2 and the
// sheet stays in calendar order no matter the export order.
func (e *XLSXExporter) writeMonthRow(f *excelize.File, sum core.MonthSummary) error {
	row := sum.Month + 1
	values := []any{
		monthName(sum.Month),
		sum.Income.InexactFloat64(),
		sum.Expenses.InexactFloat64(),
		sum.Savings.InexactFloat64(),
		sum.Balance.InexactFloat64(),
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(summarySheet, cell, v); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}

func (e *XLSXExporter) writeCategorySheet(f *excelize.File, sum core.MonthSummary) error {
	name := fmt.Sprintf("%04d-%02d", sum.Year, sum.Month)

	// Re-exports rewrite the whole sheet so stale categories disappear.
	if idx, _ := f.GetSheetIndex(name); idx >= 0 {
		if err := f.DeleteSheet(name); err != nil {
			return fmt.Errorf("reset category sheet %s: %w", name, err)
		}
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create category sheet %s: %w", name, err)
	}

	if err := f.SetCellValue(name, "A1", "Categoría"); err != nil {
		return err
	}
	if err := f.SetCellValue(name, "B1", "Gasto"); err != nil {
		return err
	}
	for i, ca := range sum.ByCategory {
		row := i + 2
		cellA, _ := excelize.CoordinatesToCellName(1, row)
		cellB, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellValue(name, cellA, ca.Name); err != nil {
			return err
		}
		if err := f.SetCellValue(name, cellB, ca.Amount.InexactFloat64()); err != nil {
			return err
		}
	}
	return nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "usuario"
	}
	return b.String()
}

func monthName(month int) string {
	return time.Month(month).String()
}
