package core

import "strings"

// Category is one of the canonical expense categories. No other value is
// ever written to an expense record.
type Category string

const (
	Food          Category = "Food"
	Travel        Category = "Travel"
	Entertainment Category = "Entertainment"
	Utilities     Category = "Utilities"
	Sharing       Category = "Sharing"
	Other         Category = "Other"
)

var categories = []Category{Food, Travel, Entertainment, Utilities, Sharing, Other}

// Categories returns the canonical set in its fixed order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// IsValid reports whether c belongs to the canonical set.
func (c Category) IsValid() bool {
	for _, v := range categories {
		if c == v {
			return true
		}
	}
	return false
}

// ParseCategory matches s case-insensitively against the canonical names.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, v := range categories {
		if strings.EqualFold(s, string(v)) {
			return v, true
		}
	}
	return "", false
}

// Rank is the position of c in the canonical order, used as a stable tie-break.
func (c Category) Rank() int {
	for i, v := range categories {
		if c == v {
			return i
		}
	}
	return len(categories)
}

func (c Category) String() string {
	return string(c)
}
