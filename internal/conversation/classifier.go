package conversation

import (
	"strings"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// IntentRule lists the phrases that select one intent. Phrases are matched
// on whole words after normalization.
type IntentRule struct {
	Intent  domain.Intent
	Phrases []string
}

// DefaultRules is checked in order; the first intent with a matching phrase
// wins when a query hits several.
var DefaultRules = []IntentRule{
	{
		Intent: domain.IntentForms,
		Phrases: []string{
			"form", "forms", "field", "fields", "lead capture", "leads", "signup", "sign up",
			"contact", "checkout", "call to action", "cta", "ctas", "conversion", "conversions",
		},
	},
	{
		Intent: domain.IntentPricing,
		Phrases: []string{
			"price", "prices", "pricing", "priced", "cost", "costs", "plan", "plans",
			"subscription", "tier", "tiers", "how much", "free trial",
		},
	},
	{
		Intent: domain.IntentQuickWins,
		Phrases: []string{
			"quick win", "quick wins", "quick fix", "quick fixes", "easy win", "easy wins",
			"low hanging fruit", "fastest", "first", "prioritize", "priority", "priorities",
			"start with", "biggest impact",
		},
	},
	{
		Intent: domain.IntentAISearch,
		Phrases: []string{
			"ai", "ai search", "chatgpt", "gpt", "gptbot", "llm", "llms", "llms txt",
			"perplexity", "claude", "gemini", "ai overview", "ai overviews", "crawler", "crawlers",
			"structured data", "schema", "answer engine",
		},
	},
}

// IntentClassifier maps free text to an Intent with a single Aho-Corasick
// pass. It is immutable after construction and safe for concurrent use.
type IntentClassifier struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	priority map[string]int
	intents  []domain.Intent
}

// NewIntentClassifier builds the automaton from rules. A nil rules slice
// uses DefaultRules.
func NewIntentClassifier(rules []IntentRule) *IntentClassifier {
	if rules == nil {
		rules = DefaultRules
	}

	c := &IntentClassifier{
		priority: make(map[string]int),
		intents:  make([]domain.Intent, 0, len(rules)),
	}
	for i, rule := range rules {
		c.intents = append(c.intents, rule.Intent)
		for _, phrase := range rule.Phrases {
			kw := " " + normalize(phrase) + " "
			if strings.TrimSpace(kw) == "" {
				continue
			}
			if _, seen := c.priority[kw]; seen {
				continue
			}
			c.priority[kw] = i
			c.keywords = append(c.keywords, kw)
		}
	}
	if len(c.keywords) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	}
	return c
}

// Classify returns the highest-priority intent whose phrase occurs in query,
// or IntentGeneral.
func (c *IntentClassifier) Classify(query string) domain.Intent {
	text := normalize(query)
	if text == "" || c.matcher == nil {
		return domain.IntentGeneral
	}

	best := len(c.intents)
	for _, hit := range c.matcher.Match([]byte(" " + text + " ")) {
		if hit >= len(c.keywords) {
			continue
		}
		if p := c.priority[c.keywords[hit]]; p < best {
			best = p
		}
	}
	if best == len(c.intents) {
		return domain.IntentGeneral
	}
	return c.intents[best]
}

var defaultClassifier = NewIntentClassifier(nil)

// ClassifyIntent classifies query with DefaultRules.
func ClassifyIntent(query string) domain.Intent {
	return defaultClassifier.Classify(query)
}

// normalize strips accents, lowercases, and reduces everything that is not
// a letter or digit to single spaces.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}
	s = strings.ToLower(s)

	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
