package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

// scoreVendor compares the document vendor name against every
// vendor-identifying field of the transaction and keeps the best score.
func (e *Engine) scoreVendor(tx *models.Transaction, doc *models.Document) float64 {
	vendor := normalizeVendor(doc.VendorName)
	if vendor == "" {
		return 0
	}

	best := 0.0
	for _, field := range tx.VendorFields() {
		if s := e.vendorFieldScore(normalizeVendor(field), vendor); s > best {
			best = s
		}
	}
	return best
}

// vendorFieldScore rates one normalized transaction field against the
// normalized vendor name. Hierarchy: exact, containment, fuzzy similarity,
// word overlap. Word overlap is capped below the containment scores.
func (e *Engine) vendorFieldScore(field, vendor string) float64 {
	if field == "" {
		return 0
	}
	if field == vendor {
		return 1.0
	}
	if strings.Contains(field, vendor) {
		return 0.8
	}
	if strings.Contains(vendor, field) {
		return 0.7
	}

	thr := e.cfg.VendorFuzzyThreshold
	if sim := levenshteinSimilarity(field, vendor); sim >= thr {
		// scale [thr, 1] into [0.6, 0.9]
		return 0.6 + (sim-thr)/(1-thr)*0.3
	}

	if j := wordOverlap(field, vendor); j > 0 {
		return j * 0.5
	}
	return 0
}

// wordOverlap is the Jaccard index over words of at least 3 characters.
func wordOverlap(a, b string) float64 {
	setA := significantWords(a)
	setB := significantWords(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	common := 0
	for w := range setA {
		if setB[w] {
			common++
		}
	}
	union := len(setA) + len(setB) - common
	return float64(common) / float64(union)
}

func significantWords(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		if len(w) >= 3 {
			words[w] = true
		}
	}
	return words
}

var vendorReplacer = strings.NewReplacer(
	"ß", "ss",
	".", "",
	",", "",
	"'", "",
	"\"", "",
	"-", " ",
	"&", " ",
	"/", " ",
	"+", " ",
	"(", " ",
	")", " ",
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeVendor lowercases, folds diacritics, strips punctuation and
// collapses whitespace.
func normalizeVendor(s string) string {
	s = strings.ToLower(s)
	s = vendorReplacer.Replace(s)
	if folded, _, err := transform.String(diacriticStripper, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), " ")
}

// levenshteinSimilarity maps edit distance into [0, 1].
func levenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		dp[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		dp[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			dp[i][j] = min(
				dp[i-1][j]+1,
				dp[i][j-1]+1,
				dp[i-1][j-1]+cost,
			)
		}
	}
	return dp[len(a)][len(b)]
}
