package shopping_test

import (
	"testing"

	"github.com/nicolagi/shopping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeFuzzy(t *testing.T) {
	c := shopping.NewCategorizer()
	testCases := []struct {
		name     string // product name as typed
		expected string // expected category label
	}{
		{name: "Apfel", expected: "Obst"},
		{name: "apfel", expected: "Obst"},
		{name: "  BROT ", expected: "Backwaren"},
		{name: "Äpfel", expected: "Obst"},
		{name: "Bio Tomaten", expected: "Gemüse"},
		{name: "Vollmilch", expected: "Milchprodukte"},
		{name: "Zahnpasta", expected: "Drogerie"},
		{name: "Spülmittel", expected: "Haushalt"},
		{name: "Quantenkartoffel", expected: shopping.DefaultCategory},
		{name: "", expected: shopping.DefaultCategory},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.Categorize(tc.name))
		})
	}
}

func TestCategorizeSubstring(t *testing.T) {
	c := shopping.NewCategorizer(shopping.WithPolicy(shopping.MatchSubstring))
	assert.Equal(t, "Obst", c.Categorize("Apfel"))
	// Containment is what the fuzzy policy avoids: any word containing a keyword matches.
	assert.Equal(t, "Gemüse", c.Categorize("Quantenkartoffel"))
	assert.Equal(t, shopping.DefaultCategory, c.Categorize("Glückskeks"))

	// The longest contained keyword wins, whatever the rule order.
	testCases := []struct {
		name     string
		expected string
	}{
		{name: "Apfelsaft", expected: "Getränke"},
		{name: "Reis", expected: "Vorrat"},
		{name: "Basmatireis", expected: "Vorrat"},
		{name: "Preiselbeeren", expected: "Obst"},
		{name: "Teelichter", expected: "Haushalt"},
		{name: "Vanilleeis", expected: "Süßwaren"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.Categorize(tc.name))
		})
	}
}

func TestCategorizeSubstringTiesGoToFirstRule(t *testing.T) {
	rules := []shopping.Rule{
		{Category: "A", Keywords: []string{"ab"}},
		{Category: "B", Keywords: []string{"cd"}},
	}
	c := shopping.NewCategorizer(shopping.WithRules(rules), shopping.WithPolicy(shopping.MatchSubstring))
	assert.Equal(t, "A", c.Categorize("abcd"))
	reversed := shopping.NewCategorizer(shopping.WithRules([]shopping.Rule{rules[1], rules[0]}),
		shopping.WithPolicy(shopping.MatchSubstring))
	assert.Equal(t, "B", reversed.Categorize("abcd"))
}

func TestCategorizeTiesGoToFirstRule(t *testing.T) {
	rules := []shopping.Rule{
		{Category: "A", Keywords: []string{"ABCD"}},
		{Category: "B", Keywords: []string{"abce"}},
	}
	c := shopping.NewCategorizer(shopping.WithRules(rules), shopping.WithThreshold(0.7))
	// Both keywords are one edit away.
	for i := 0; i < 10; i++ {
		require.Equal(t, "A", c.Categorize("abcf"))
	}
	reversed := shopping.NewCategorizer(shopping.WithRules([]shopping.Rule{rules[1], rules[0]}), shopping.WithThreshold(0.7))
	assert.Equal(t, "B", reversed.Categorize("abcf"))
}

func TestCategorizeDefaultLabel(t *testing.T) {
	c := shopping.NewCategorizer(shopping.WithDefaultCategory("Sonstiges"))
	assert.Equal(t, "Sonstiges", c.Categorize("Quantenkartoffel"))
	assert.Equal(t, "Sonstiges", c.Default())
	categories := c.Categories()
	require.NotEmpty(t, categories)
	assert.Equal(t, "Obst", categories[0])
	assert.Equal(t, "Sonstiges", categories[len(categories)-1])
}

func TestSimilarity(t *testing.T) {
	c := shopping.NewCategorizer()
	assert.Equal(t, 1.0, c.Similarity("apfel", "apfel"))
	assert.InDelta(t, 0.8, c.Similarity("äpfel", "apfel"), 1e-9)
	assert.InDelta(t, 1-7.0/16, c.Similarity("quantenkartoffel", "kartoffel"), 1e-9)
	assert.Equal(t, 0.0, c.Similarity("abc", "xyz"))
}

func TestParseMatchPolicy(t *testing.T) {
	p, err := shopping.ParseMatchPolicy("Substring")
	require.Nil(t, err)
	assert.Equal(t, shopping.MatchSubstring, p)
	p, err = shopping.ParseMatchPolicy("")
	require.Nil(t, err)
	assert.Equal(t, shopping.MatchFuzzy, p)
	_, err = shopping.ParseMatchPolicy("soundex")
	assert.NotNil(t, err)
}
