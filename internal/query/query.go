// Package query interprets short free-text questions about expenses.
//
// The grammar is a closed set of phrases: a date phrase, one of the six
// canonical category names and an intent keyword. Each is recognized
// independently of the others.
package query

import (
	"regexp"
	"strings"

	"expensechat/internal/core"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DateKind tells which date restriction a question carries.
type DateKind int

const (
	DateNone DateKind = iota
	DateExact
	DateRange
)

// DateFilter restricts records by date. Start == End for DateExact.
type DateFilter struct {
	Kind  DateKind
	Start core.Date
	End   core.Date
}

// Intent is the recognized purpose of a question.
type Intent int

const (
	Unrecognized Intent = iota
	Total
	Trend
	CategoryBreakdown
)

func (i Intent) String() string {
	switch i {
	case Total:
		return "total"
	case Trend:
		return "trend"
	case CategoryBreakdown:
		return "category_breakdown"
	default:
		return "unrecognized"
	}
}

// Query is the parsed form of a question.
type Query struct {
	Date     DateFilter
	Category core.Category // empty when no category was named
	Intent   Intent
}

// HasCategory reports whether the question named a category.
func (q Query) HasCategory() bool { return q.Category != "" }

var categoryPattern = regexp.MustCompile(`\b(food|travel|entertainment|utilities|sharing|other)\b`)

// Parse extracts the date filter, category filter and intent from text,
// resolving relative dates against today.
func Parse(text string, today core.Date) Query {
	q := strings.ToLower(text)
	return Query{
		Date:     parseDate(q, today),
		Category: parseCategory(q),
		Intent:   parseIntent(q),
	}
}

func parseDate(q string, today core.Date) DateFilter {
	switch {
	case strings.Contains(q, "today"):
		return Exact(today)
	case strings.Contains(q, "yesterday"):
		return Exact(today.AddDays(-1))
	case strings.Contains(q, "this month"):
		return Month(today)
	case strings.Contains(q, "last month"):
		return Month(today.FirstOfMonth().AddDays(-1))
	}
	return DateFilter{Kind: DateNone}
}

func parseCategory(q string) core.Category {
	m := categoryPattern.FindStringSubmatch(q)
	if m == nil {
		return ""
	}
	// Casers are stateful; one per call.
	c, ok := core.ParseCategory(cases.Title(language.English).String(m[1]))
	if !ok {
		return ""
	}
	return c
}

func parseIntent(q string) Intent {
	switch {
	case strings.Contains(q, "total"), strings.Contains(q, "how much"):
		return Total
	case strings.Contains(q, "trend"):
		return Trend
	case strings.Contains(q, "category"), strings.Contains(q, "categories"):
		return CategoryBreakdown
	}
	return Unrecognized
}

// Exact is a single-day filter.
func Exact(d core.Date) DateFilter {
	return DateFilter{Kind: DateExact, Start: d, End: d}
}

// Month is the filter covering the whole calendar month containing d.
func Month(d core.Date) DateFilter {
	return DateFilter{Kind: DateRange, Start: d.FirstOfMonth(), End: d.LastOfMonth()}
}
