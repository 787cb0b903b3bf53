package shopping

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultCategory is the label of products that match no rule.
const DefaultCategory = "other"

// DefaultThreshold is the minimum similarity for a fuzzy match.
const DefaultThreshold = 0.8

// epsilon absorbs rounding in the similarity ratio, so that, e.g., one edit over five runes meets a 0.8
// threshold.
const epsilon = 1e-9

// MatchPolicy selects how product names are compared with the keywords of a rule.
type MatchPolicy int

const (
	MatchFuzzy     MatchPolicy = iota // edit distance, per word
	MatchSubstring                    // case-insensitive containment
)

func (p MatchPolicy) String() string {
	switch p {
	case MatchFuzzy:
		return "fuzzy"
	case MatchSubstring:
		return "substring"
	default:
		return fmt.Sprintf("%d", int(p))
	}
}

// ParseMatchPolicy is the inverse of MatchPolicy.String.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fuzzy":
		return MatchFuzzy, nil
	case "substring":
		return MatchSubstring, nil
	default:
		return 0, fmt.Errorf("unknown match policy %q: supported policies are fuzzy, substring", s)
	}
}

// Rule maps the known product names of a category to its label. Keywords are lower case.
type Rule struct {
	Category string
	Keywords []string
}

// DefaultRules is the built-in product taxonomy. It is a slice because rule order breaks ties.
var DefaultRules = []Rule{
	{Category: "Obst", Keywords: []string{
		"apfel", "birne", "banane", "orange", "mandarine", "zitrone", "traube", "trauben", "erdbeere",
		"erdbeeren", "kiwi", "mango", "ananas", "pfirsich", "kirsche", "kirschen", "pflaume", "melone",
		"heidelbeeren", "himbeeren", "preiselbeeren",
	}},
	{Category: "Gemüse", Keywords: []string{
		"kartoffel", "kartoffeln", "tomate", "tomaten", "gurke", "salat", "karotte", "karotten", "möhre",
		"möhren", "zwiebel", "zwiebeln", "knoblauch", "paprika", "zucchini", "brokkoli", "blumenkohl",
		"spinat", "lauch", "pilze", "champignons", "aubergine", "kohlrabi", "radieschen",
	}},
	{Category: "Milchprodukte", Keywords: []string{
		"milch", "vollmilch", "butter", "käse", "joghurt", "quark", "sahne", "schmand", "frischkäse", "mozzarella",
		"gouda", "eier", "margarine",
	}},
	{Category: "Backwaren", Keywords: []string{
		"brot", "brötchen", "toast", "baguette", "croissant", "brezel", "kuchen", "knäckebrot",
	}},
	{Category: "Fleisch & Fisch", Keywords: []string{
		"fleisch", "hackfleisch", "hähnchen", "huhn", "schnitzel", "wurst", "würstchen", "salami",
		"schinken", "speck", "lachs", "fisch", "thunfisch", "garnelen",
	}},
	{Category: "Getränke", Keywords: []string{
		"wasser", "saft", "apfelsaft", "orangensaft", "cola", "limonade", "bier", "wein", "kaffee", "tee",
		"sprudel",
	}},
	{Category: "Süßwaren", Keywords: []string{
		"schokolade", "chips", "kekse", "gummibärchen", "bonbons", "eis", "nutella", "müsliriegel",
	}},
	{Category: "Tiefkühl", Keywords: []string{
		"pizza", "pommes", "tiefkühlgemüse", "fischstäbchen",
	}},
	{Category: "Vorrat", Keywords: []string{
		"nudeln", "spaghetti", "reis", "mehl", "zucker", "salz", "pfeffer", "öl", "olivenöl", "essig",
		"müsli", "haferflocken", "honig", "marmelade", "konserven", "senf", "ketchup",
	}},
	{Category: "Drogerie", Keywords: []string{
		"zahnpasta", "zahnbürste", "shampoo", "duschgel", "seife", "deo", "creme", "rasierer",
		"toilettenpapier", "taschentücher", "windeln",
	}},
	{Category: "Haushalt", Keywords: []string{
		"spülmittel", "waschmittel", "müllbeutel", "alufolie", "frischhaltefolie", "schwamm",
		"küchenrolle", "batterien", "glühbirne", "reiniger", "teelichter", "kerzen",
	}},
}

// Categorizer files product names under the category labels of an ordered rule table.
type Categorizer struct {
	rules     []Rule
	policy    MatchPolicy
	threshold float64
	fallback  string
	dmp       *diffmatchpatch.DiffMatchPatch
}

// CategorizerOption configures a Categorizer.
type CategorizerOption func(*Categorizer)

// WithRules replaces the built-in taxonomy. Keywords are lowered.
func WithRules(rules []Rule) CategorizerOption {
	return func(c *Categorizer) {
		c.rules = make([]Rule, 0, len(rules))
		for _, r := range rules {
			kw := make([]string, 0, len(r.Keywords))
			for _, k := range r.Keywords {
				if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
					kw = append(kw, k)
				}
			}
			c.rules = append(c.rules, Rule{Category: r.Category, Keywords: kw})
		}
	}
}

func WithPolicy(p MatchPolicy) CategorizerOption {
	return func(c *Categorizer) {
		c.policy = p
	}
}

// WithThreshold sets the minimum similarity, in (0, 1], for fuzzy matches. Out of range values are ignored.
func WithThreshold(t float64) CategorizerOption {
	return func(c *Categorizer) {
		if t > 0 && t <= 1 {
			c.threshold = t
		}
	}
}

// WithDefaultCategory sets the label returned when nothing matches.
func WithDefaultCategory(label string) CategorizerOption {
	return func(c *Categorizer) {
		if label = strings.TrimSpace(label); label != "" {
			c.fallback = label
		}
	}
}

func NewCategorizer(opts ...CategorizerOption) *Categorizer {
	c := &Categorizer{
		rules:     DefaultRules,
		policy:    MatchFuzzy,
		threshold: DefaultThreshold,
		fallback:  DefaultCategory,
		dmp:       diffmatchpatch.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categories returns the labels of the rule table in order, followed by the default label.
func (c *Categorizer) Categories() []string {
	labels := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		labels = append(labels, r.Category)
	}
	return append(labels, c.fallback)
}

// Default returns the label used for products that match no rule.
func (c *Categorizer) Default() string {
	return c.fallback
}

// Categorize returns the category label for a product name, or the default label if no rule matches.
func (c *Categorizer) Categorize(name string) string {
	if c == nil {
		return DefaultCategory
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return c.fallback
	}
	switch c.policy {
	case MatchSubstring:
		return c.bySubstring(name)
	default:
		return c.byDistance(name)
	}
}

// bySubstring picks the longest keyword contained in the name, so that "reis" beats "eis" in "Reis". Among
// keywords of the same length, the rule that comes first wins.
func (c *Categorizer) bySubstring(name string) string {
	best, bestLen := c.fallback, 0
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			if n := utf8.RuneCountInString(k); n > bestLen && strings.Contains(name, k) {
				best, bestLen = r.Category, n
			}
		}
	}
	return best
}

// byDistance compares every word of the name, and the name as a whole, with every keyword. The highest
// similarity wins; the strict comparison leaves ties to the rule that comes first.
func (c *Categorizer) byDistance(name string) string {
	candidates := words(name)
	if len(candidates) > 1 {
		candidates = append(candidates, name)
	}
	best, bestScore := c.fallback, 0.0
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			for _, w := range candidates {
				if score := c.Similarity(w, k); score+epsilon >= c.threshold && score > bestScore {
					best, bestScore = r.Category, score
				}
			}
		}
	}
	return best
}

// Similarity returns 1 minus the Levenshtein distance of a and b over the length of the longer string, in
// runes. Identical strings score 1, strings with nothing in common score 0.
func (c *Categorizer) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	diffs := c.dmp.DiffMain(a, b, false)
	return 1 - float64(c.dmp.DiffLevenshtein(diffs))/float64(longest)
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
