package matching

import (
	"strings"
	"unicode"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

// scoreReference compares the transaction note against the document invoice
// number. Both sides are normalized first (prefixes stripped, separators
// removed), then matched by an exact/containment/digit-run/skeleton hierarchy.
func (e *Engine) scoreReference(tx *models.Transaction, doc *models.Document) float64 {
	note := normalizeReference(tx.Note)
	number := normalizeReference(doc.InvoiceNumber)
	if note == "" || number == "" {
		return 0
	}

	if note == number {
		return 1.0
	}
	if strings.Contains(note, number) {
		return 0.8
	}
	if strings.Contains(number, note) {
		return 0.7
	}

	if s := digitRunScore(note, number); s > 0 {
		return s
	}
	return skeletonScore(note, number)
}

// digitRunScore rates shared numeric substrings of at least 3 digits.
// Each matched run contributes its share of the invoice number's total digit
// length, so longer runs carry more weight. Scaled to a maximum of 0.6.
func digitRunScore(note, number string) float64 {
	numberRuns := digitRuns(number)
	if len(numberRuns) == 0 {
		return 0
	}

	totalLen := 0
	matchedLen := 0
	for _, run := range numberRuns {
		totalLen += len(run)
		if strings.Contains(note, run) {
			matchedLen += len(run)
		}
	}
	if matchedLen == 0 {
		return 0
	}
	return 0.6 * float64(matchedLen) / float64(totalLen)
}

// skeletonScore compares letter/digit skeletons ("RG2024-17" -> "AA9999 99").
// A near-identical structure is a weak signal worth at most 0.4.
func skeletonScore(note, number string) float64 {
	sim := levenshteinSimilarity(skeleton(note), skeleton(number))
	if sim < 0.8 {
		return 0
	}
	// scale [0.8, 1] into [0.3, 0.4]
	return 0.3 + (sim-0.8)/0.2*0.1
}

func skeleton(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteByte('9')
		case unicode.IsLetter(r):
			b.WriteByte('A')
		}
	}
	return b.String()
}

func digitRuns(s string) []string {
	var runs []string
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= 3 {
			runs = append(runs, s[start:i])
		}
		start = -1
	}
	if start >= 0 && len(s)-start >= 3 {
		runs = append(runs, s[start:])
	}
	return runs
}

var referencePrefixes = []string{"INVOICE", "INV", "RECHNUNG", "REF", "RG", "RE", "NR", "NO"}

var referenceSeparators = strings.NewReplacer(
	" ", "", "-", "", "_", "", "/", "", ".", "", ":", "", "#", "",
)

// normalizeReference uppercases, strips well-known invoice prefixes and
// removes separator characters so "INV-2024/0815" and "20240815" align.
func normalizeReference(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = referenceSeparators.Replace(s)
	for _, p := range referencePrefixes {
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			s = s[len(p):]
			break
		}
	}
	return s
}

// extractReferenceTokens pulls candidate invoice references out of a free
// text note: any token carrying at least 3 digits, normalized.
func extractReferenceTokens(note string) []string {
	fields := strings.FieldsFunc(note, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';'
	})

	seen := make(map[string]bool)
	var tokens []string
	for _, f := range fields {
		if countDigits(f) < 3 {
			continue
		}
		tok := normalizeReference(f)
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
