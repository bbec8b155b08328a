// Package store defines the ports the services use to read and write
// expense records, independent of the backing database.
package store

import (
	"context"

	"expensechat/internal/core"
)

// Filter narrows an owner's records. Zero-valued fields do not restrict.
type Filter struct {
	Owner    string
	On       core.Date // exact day
	From     core.Date // inclusive
	To       core.Date // inclusive
	Category core.Category
	Year     int
	Month    int // 1..12, only honored together with Year
}

// Match reports whether e passes every set restriction.
func (f Filter) Match(e core.Expense) bool {
	if e.Owner != f.Owner {
		return false
	}
	if !f.On.IsEmpty() && !e.Date.Equal(f.On.Time) {
		return false
	}
	if !f.From.IsEmpty() && e.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsEmpty() && e.Date.After(f.To.Time) {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Year != 0 {
		if e.Date.Year() != f.Year {
			return false
		}
		if f.Month != 0 && e.Date.Month() != f.Month {
			return false
		}
	}
	return true
}

// Ports for outbound adapters.
type (
	Reader interface {
		// Query returns the owner's matching records ordered by date, then ID.
		Query(ctx context.Context, f Filter) ([]core.Expense, error)
		// Get returns a record by ID or core.ErrNotFound.
		Get(ctx context.Context, id int64) (core.Expense, error)
		// Version changes whenever a record is added for owner, in this
		// process or any other sharing the store. Records are append-only,
		// so the highest ID is enough.
		Version(ctx context.Context, owner string) (int64, error)
	}

	Writer interface {
		// Insert stores a validated record and returns its new ID.
		Insert(ctx context.Context, e core.Expense) (int64, error)
	}

	Store interface {
		Reader
		Writer
	}

	// ExportQueue tracks which records still have to reach the spreadsheet.
	ExportQueue interface {
		PendingExport(ctx context.Context, limit int) ([]core.Expense, error)
		MarkExported(ctx context.Context, id int64) error
		// IsExported reports whether id was marked, or core.ErrNotFound.
		IsExported(ctx context.Context, id int64) (bool, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)
