package categorize

import (
	"os"
	"path/filepath"
	"testing"

	"expensechat/internal/core"
	"expensechat/internal/model"

	"github.com/jbrukh/bayesian"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAliasesOrder(t *testing.T) {
	aliases := DefaultAliases().Aliases()
	require.Len(t, aliases, 16)
	assert.Equal(t, Alias{Keyword: "food", Category: core.Food}, aliases[0])
	assert.Equal(t, Alias{Keyword: "others", Category: core.Other}, aliases[len(aliases)-1])
	for _, a := range aliases {
		assert.True(t, a.Category.IsValid(), a.Keyword)
	}
}

func TestNormalize(t *testing.T) {
	table := DefaultAliases()
	cases := []struct {
		in   string
		want core.Category
	}{
		{"", core.Other},
		{"Groceries", core.Food},
		{"TRANSPORT", core.Travel},
		{"netflix", core.Entertainment},
		{"electricity bill", core.Utilities},
		{"public transport", core.Travel},
		{"Sharing", core.Sharing},
		{"others", core.Other},
		{"Misc", core.Other},
		{"   ", core.Other},
		// "food" precedes "bus" in the table
		{"bus food", core.Food},
		// "uber" precedes "movie"
		{"movie uber", core.Travel},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, table.Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIsTotal(t *testing.T) {
	table := DefaultAliases()
	inputs := []string{"", " ", "\x00", "ünïcödé", "🍕", "FOOD!!!", "a very long label with no keyword at all"}
	for _, in := range inputs {
		assert.True(t, table.Normalize(in).IsValid(), "Normalize(%q)", in)
	}
}

func TestParseAliasesValidation(t *testing.T) {
	cases := map[string]string{
		"empty":        "aliases: []\n",
		"bad yaml":     "aliases: [\n",
		"no keyword":   "aliases:\n  - keyword: ' '\n    category: Food\n",
		"bad category": "aliases:\n  - keyword: pizza\n    category: Groceries\n",
		"duplicate":    "aliases:\n  - keyword: pizza\n    category: Food\n  - keyword: Pizza\n    category: Other\n",
	}
	for name, src := range cases {
		_, err := ParseAliases([]byte(src))
		assert.Error(t, err, name)
	}
}

func TestLoadAliasesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  - keyword: Rent\n    category: Utilities\n"), 0o644))

	table, err := LoadAliases(path)
	require.NoError(t, err)
	assert.Equal(t, core.Utilities, table.Normalize("monthly rent"))
	assert.Equal(t, core.Other, table.Normalize("pizza"))

	_, err = LoadAliases(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	table, err = LoadAliases("")
	require.NoError(t, err)
	assert.Len(t, table.Aliases(), 16)
}

func TestCategorizeWithoutModel(t *testing.T) {
	e := NewEngine(model.Absent(), nil, nil)
	assert.False(t, e.HasModel())

	cases := []struct {
		in   string
		want core.Category
	}{
		{"", core.Other},
		{"   ", core.Other},
		{"I had pizza today", core.Food},
		{"uber to airport", core.Travel},
		{"Netflix subscription", core.Entertainment},
		{"Electricity", core.Utilities},
		{"flowers for mum", core.Other},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, e.Categorize(tc.in), "Categorize(%q)", tc.in)
	}
}

func TestCategorizeDeterministic(t *testing.T) {
	e := NewEngine(model.Absent(), nil, nil)
	first := e.Categorize("bus ticket and movie night")
	for i := 0; i < 100; i++ {
		require.Equal(t, first, e.Categorize("bus ticket and movie night"))
	}
	assert.Equal(t, core.Travel, first)
}

func TestCategorizeUsesModelFirst(t *testing.T) {
	c := bayesian.NewClassifier("Entertainment", "Groceries")
	c.Learn([]string{"bus", "tour"}, "Entertainment")
	c.Learn([]string{"milk", "eggs"}, "Groceries")

	v, err := model.ParseVectorizer([]byte("vocabulary: [bus, tour, milk, eggs]\n"))
	require.NoError(t, err)
	a, err := model.NewArtifact(v, c)
	require.NoError(t, err)

	e := NewEngine(model.Present(a), nil, nil)
	assert.True(t, e.HasModel())

	// keyword rules would say Travel
	assert.Equal(t, core.Entertainment, e.Categorize("city bus tour"))
	// model label normalized onto the canonical set
	assert.Equal(t, core.Food, e.Categorize("milk and eggs"))
	// out of vocabulary falls back to keyword rules
	assert.Equal(t, core.Travel, e.Categorize("uber to airport"))
	assert.Equal(t, core.Other, e.Categorize("flowers"))
}

func TestCategorizeConcurrent(t *testing.T) {
	e := NewEngine(model.Absent(), nil, nil)
	done := make(chan core.Category, 50)
	for i := 0; i < 50; i++ {
		go func() { done <- e.Categorize("I had pizza today") }()
	}
	for i := 0; i < 50; i++ {
		assert.Equal(t, core.Food, <-done)
	}
}
