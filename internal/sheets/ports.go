package sheets

import (
	"context"
	"fmt"
	"strings"

	"ganhos/internal/core"
)

// DefaultSheetBase prefixes every exported tab.
const DefaultSheetBase = "Ganhos"

// Ports for outbound adapters.
type (
	// SummaryWriter stores an aggregated period report and returns a
	// reference to where it was written.
	SummaryWriter interface {
		WritePeriodSummary(ctx context.Context, r core.PeriodReport) (ref string, err error)
	}
)

// SheetName returns the tab a report belongs to: one tab per record kind and
// custom month, e.g. "Ganhos voucher 2024-02".
func SheetName(base string, r core.PeriodReport) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultSheetBase
	}
	return fmt.Sprintf("%s %s %s", base, r.Kind, r.Window.Start.Format("2006-01"))
}
