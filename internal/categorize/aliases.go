// Package categorize assigns a canonical category to free expense text.
package categorize

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"expensechat/internal/core"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var embeddedAliases []byte

// Alias maps a lowercase keyword to a canonical category.
type Alias struct {
	Keyword  string        `yaml:"keyword"`
	Category core.Category `yaml:"category"`
}

type aliasFile struct {
	Aliases []Alias `yaml:"aliases"`
}

// AliasTable is an ordered, read-only list of aliases. Lookups scan it in
// file order, so earlier entries win when several keywords are contained in
// the same text.
type AliasTable struct {
	aliases []Alias
	exact   map[string]core.Category
}

// ParseAliases decodes and validates an alias table from YAML.
func ParseAliases(data []byte) (*AliasTable, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse alias YAML: %w", err)
	}
	if len(f.Aliases) == 0 {
		return nil, fmt.Errorf("alias table is empty")
	}

	t := &AliasTable{
		aliases: make([]Alias, 0, len(f.Aliases)),
		exact:   make(map[string]core.Category, len(f.Aliases)),
	}
	for i, a := range f.Aliases {
		kw := strings.ToLower(strings.TrimSpace(a.Keyword))
		if kw == "" {
			return nil, fmt.Errorf("alias %d: keyword cannot be empty", i)
		}
		if !a.Category.IsValid() {
			return nil, fmt.Errorf("alias %d (%s): invalid category %q", i, kw, a.Category)
		}
		if _, dup := t.exact[kw]; dup {
			return nil, fmt.Errorf("alias %d (%s): duplicate keyword", i, kw)
		}
		t.exact[kw] = a.Category
		t.aliases = append(t.aliases, Alias{Keyword: kw, Category: a.Category})
	}
	return t, nil
}

// DefaultAliases returns the built-in alias table.
func DefaultAliases() *AliasTable {
	t, err := ParseAliases(embeddedAliases)
	if err != nil {
		panic(fmt.Sprintf("embedded aliases: %v", err))
	}
	return t
}

// LoadAliases reads an alias table from path, or returns the built-in table
// when path is empty.
func LoadAliases(path string) (*AliasTable, error) {
	if path == "" {
		return DefaultAliases(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file %s: %w", path, err)
	}
	return ParseAliases(data)
}

// Aliases returns a copy of the table in scan order.
func (t *AliasTable) Aliases() []Alias {
	out := make([]Alias, len(t.aliases))
	copy(out, t.aliases)
	return out
}

// Normalize maps any raw label onto the canonical set. It is total: empty
// input and labels no alias matches both yield Other.
func (t *AliasTable) Normalize(raw string) core.Category {
	if raw == "" {
		return core.Other
	}
	key := strings.ToLower(raw)
	if c, ok := t.exact[key]; ok {
		return c
	}
	if c, ok := t.scan(key); ok {
		return c
	}
	return core.Other
}

// Match returns the category of the first alias contained in text.
func (t *AliasTable) Match(text string) (core.Category, bool) {
	return t.scan(strings.ToLower(text))
}

func (t *AliasTable) scan(lower string) (core.Category, bool) {
	for _, a := range t.aliases {
		if strings.Contains(lower, a.Keyword) {
			return a.Category, true
		}
	}
	return "", false
}
