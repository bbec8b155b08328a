// Package reply renders chat answers as plain text.
package reply

import (
	"fmt"
	"strings"

	"expensechat/internal/aggregate"
	"expensechat/internal/core"
)

const (
	DefaultCurrency = "₹"

	HelpText         = "I can help with queries like 'Show food expenses this month' or 'Total travel expenses today'."
	NoExpensesText   = "No matching expenses."
	trendPrefix      = "Monthly Trend: "
	emptyTrendSuffix = "no expenses yet"
)

// Formatter renders answers with a currency glyph.
type Formatter struct {
	Currency string
}

// New returns a formatter; an empty glyph falls back to DefaultCurrency.
func New(currency string) Formatter {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Formatter{Currency: currency}
}

func (f Formatter) money(m core.Money) string {
	return f.Currency + m.String()
}

// Total renders the grand total.
func (f Formatter) Total(total core.Money) string {
	return "Total expenses: " + f.money(total)
}

// Trend renders monthly groups as "month: total" joined by arrows.
func (f Formatter) Trend(groups []aggregate.Group) string {
	if len(groups) == 0 {
		return trendPrefix + emptyTrendSuffix
	}
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = fmt.Sprintf("%d: %s", g.Start.Month(), f.money(g.Total))
	}
	return trendPrefix + strings.Join(parts, " → ")
}

// Breakdown renders one "Category: total" line per row.
func (f Formatter) Breakdown(rows []core.CategoryAmount) string {
	if len(rows) == 0 {
		return NoExpensesText
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("%s: %s", r.Category, f.money(r.Amount))
	}
	return strings.Join(lines, "\n")
}

// Help is the fixed answer for questions that were not understood.
func (f Formatter) Help() string {
	return HelpText
}

// Summary renders one "serial range: total" line per group and a closing
// grand total line.
func (f Formatter) Summary(s aggregate.Summary) string {
	if len(s.Groups) == 0 {
		return NoExpensesText
	}
	lines := make([]string, 0, len(s.Groups)+1)
	for _, g := range s.Groups {
		label := g.Range()
		if g.Serial != "" {
			label = g.Serial + " " + label
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, f.money(g.Total)))
	}
	lines = append(lines, "Total: "+f.money(s.Total))
	return strings.Join(lines, "\n")
}
