package export

import (
	"context"
	"sync"

	"hucha/internal/core"
)

// MemoryExporter records exports in memory. It backs tests and lets the
// report worker run without any configured target.
type MemoryExporter struct {
	mu      sync.Mutex
	exports []MemoryExport
}

type MemoryExport struct {
	User    core.User
	Summary core.MonthSummary
}

var _ SummaryExporter = (*MemoryExporter)(nil)

func NewMemoryExporter() *MemoryExporter {
	return &MemoryExporter{}
}

func (e *MemoryExporter) ExportMonthSummary(_ context.Context, user core.User, sum core.MonthSummary) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exports = append(e.exports, MemoryExport{User: user, Summary: sum})
	return nil
}

// Exports returns a copy of everything exported so far.
func (e *MemoryExporter) Exports() []MemoryExport {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]MemoryExport, len(e.exports))
	copy(out, e.exports)
	return out
}
