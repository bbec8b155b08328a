// Package aggregate groups expense records into dated buckets and sums them.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"expensechat/internal/core"
)

// Granularity is the size of the time bucket records are grouped by.
type Granularity int

const (
	None Granularity = iota
	Day
	Week
	Month
	Year
)

// ParseGranularity accepts daily|weekly|monthly|yearly (or day|week|month|year)
// and none|all.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "all":
		return None, nil
	case "daily", "day":
		return Day, nil
	case "weekly", "week":
		return Week, nil
	case "monthly", "month":
		return Month, nil
	case "yearly", "year":
		return Year, nil
	}
	return None, fmt.Errorf("unknown granularity %q", s)
}

func (g Granularity) String() string {
	switch g {
	case Day:
		return "daily"
	case Week:
		return "weekly"
	case Month:
		return "monthly"
	case Year:
		return "yearly"
	default:
		return "none"
	}
}

// prefix is the serial letter for g.
func (g Granularity) prefix() string {
	switch g {
	case Day:
		return "D"
	case Week:
		return "W"
	case Month:
		return "M"
	case Year:
		return "Y"
	default:
		return ""
	}
}

// Group is one bucket of records. Start and End are the earliest and latest
// record dates observed in the bucket, not calendar boundaries.
type Group struct {
	Serial  string
	Start   core.Date
	End     core.Date
	Total   core.Money
	Records []core.Expense
}

// Range renders the group's observed date span. Daily groups show one date.
func (g Group) Range() string {
	if g.Start.IsEmpty() {
		return ""
	}
	if g.Start.Equal(g.End.Time) {
		return g.Start.Format(core.DisplayLayout)
	}
	return g.Start.Format(core.DisplayLayout) + " to " + g.End.Format(core.DisplayLayout)
}

// Summary is the result of an aggregation.
type Summary struct {
	Granularity Granularity
	Groups      []Group
	Total       core.Money
}

// bucket keys sort lexically as (a, b).
type key struct{ a, b int }

func keyOf(g Granularity, d core.Date) key {
	switch g {
	case Day:
		return key{a: d.Year(), b: d.Month()*100 + d.Day()}
	case Week:
		y, w := d.ISOWeek()
		return key{a: y, b: w}
	case Month:
		return key{a: d.Year(), b: d.Month()}
	case Year:
		return key{a: d.Year()}
	default:
		return key{}
	}
}

// Aggregate buckets records by g. The output depends only on the records'
// dates, IDs and amounts, never on input order.
func Aggregate(records []core.Expense, g Granularity) Summary {
	sorted := make([]core.Expense, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date.Time) {
			return sorted[i].Date.Before(sorted[j].Date.Time)
		}
		return sorted[i].ID < sorted[j].ID
	})

	s := Summary{Granularity: g, Total: core.Sum(sorted)}
	if g == None {
		grp := Group{Total: s.Total, Records: sorted}
		if len(sorted) > 0 {
			grp.Start, grp.End = sorted[0].Date, sorted[len(sorted)-1].Date
		}
		s.Groups = []Group{grp}
		return s
	}

	// sorted by date, so equal keys are contiguous and already ascending
	var cur key
	for _, e := range sorted {
		k := keyOf(g, e.Date)
		if len(s.Groups) == 0 || k != cur {
			cur = k
			s.Groups = append(s.Groups, Group{
				Serial: fmt.Sprintf("%s%d", g.prefix(), len(s.Groups)+1),
				Start:  e.Date,
			})
		}
		grp := &s.Groups[len(s.Groups)-1]
		grp.End = e.Date
		grp.Total = grp.Total.Add(e.Amount)
		grp.Records = append(grp.Records, e)
	}
	return s
}

// ByCategory sums records per category, largest total first. Equal totals
// keep the canonical category order.
func ByCategory(records []core.Expense) []core.CategoryAmount {
	totals := make(map[core.Category]core.Money)
	for _, e := range records {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(totals))
	for c, m := range totals {
		out = append(out, core.CategoryAmount{Category: c, Amount: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		if out[i].Category.Rank() != out[j].Category.Rank() {
			return out[i].Category.Rank() < out[j].Category.Rank()
		}
		return out[i].Category < out[j].Category
	})
	return out
}
