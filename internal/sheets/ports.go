package sheets

import (
	"context"

	"expensechat/internal/core"
)

// Ports for outbound adapters.
type (
	// Exporter writes one expense as a spreadsheet row and returns a
	// reference to the written range.
	Exporter interface {
		Export(ctx context.Context, e core.Expense) (rowRef string, err error)
	}
)
