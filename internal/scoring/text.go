package scoring

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	tokenSeparator = regexp.MustCompile(`[^a-z0-9+#]+`)
	numberPattern  = regexp.MustCompile(`\b\d+(\.\d+)?%?\b`)
)

var stopWords = newTokenSet(
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from", "has",
	"have", "he", "in", "is", "it", "its", "of", "on", "or", "that", "the", "their",
	"they", "this", "to", "was", "were", "will", "with", "you", "your", "we", "our", "us",
)

// Short tokens that still carry meaning in technical postings.
var shortTokens = newTokenSet("c", "go", "ai", "ml", "ui", "ux", "qa", "c#", "c++")

var actionVerbs = newTokenSet(
	"built", "created", "designed", "developed", "delivered", "implemented",
	"improved", "increased", "reduced", "optimized", "automated", "led", "managed",
	"owned", "shipped", "launched", "migrated", "refactored", "collaborated",
	"analyzed", "architected", "tested", "deployed",
)

var outcomeMarkers = []string{
	"improved", "increased", "reduced", "decreased", "accelerated", "saved", "cut",
	"boosted", "grew", "optimized", "revenue", "cost", "latency", "throughput",
	"uptime", "performance", "efficiency", "scalability",
}

type tokenSet map[string]struct{}

func newTokenSet(tokens ...string) tokenSet {
	set := make(tokenSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func (s tokenSet) has(token string) bool {
	_, ok := s[token]
	return ok
}

func (s tokenSet) intersect(other tokenSet) tokenSet {
	out := make(tokenSet)
	for t := range s {
		if other.has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

func (s tokenSet) difference(other tokenSet) tokenSet {
	out := make(tokenSet)
	for t := range s {
		if !other.has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// sorted returns at most limit tokens in lexicographic order. A non-positive
// limit returns all of them.
func (s tokenSet) sorted(limit int) []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// keywords tokenizes text into lower-cased alphanumeric tokens (plus '+' and '#'),
// dropping stop words and short tokens outside the allow-list.
func keywords(text string) tokenSet {
	out := make(tokenSet)
	for _, t := range tokenSeparator.Split(strings.ToLower(text), -1) {
		if t == "" || stopWords.has(t) {
			continue
		}
		if len(t) <= 2 && !shortTokens.has(t) {
			continue
		}
		out[t] = struct{}{}
	}
	return out
}

func looksLikeActionBullet(bullet string) bool {
	fields := strings.Fields(strings.ToLower(bullet))
	if len(fields) == 0 {
		return false
	}
	return actionVerbs.has(fields[0])
}

func containsNumber(s string) bool {
	return numberPattern.MatchString(s)
}

func containsOutcomeLanguage(s string) bool {
	lower := strings.ToLower(s)
	for _, m := range outcomeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// clamp bounds x to [0, 100]. NaN and infinities collapse to the lower bound.
func clamp(x float64) float64 {
	return clampRange(x, 0, 100)
}

func clamp01(x float64) float64 {
	return clampRange(x, 0, 1)
}

func clampRange(x, lo, hi float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}
