package fetcher

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// evidenceKeywords mark the page regions worth sending to the oracle:
// inclusion lists, flight mentions, itinerary and terms sections, pricing
// conventions.
var evidenceKeywords = []string{
	"include",
	"inclusion",
	"flight",
	"airfare",
	"itinerary",
	"terms",
	"per person",
	"twin share",
	"departure",
	"travel dates",
	"bonus",
	"valid for travel",
}

// windowRadius is the number of characters kept either side of a keyword hit.
const windowRadius = 300

// windowJoiner separates disjoint evidence windows in the extracted text.
const windowJoiner = " … "

// snapRuneStart moves i left to the nearest rune boundary in s so slicing
// at i never splits a multi-byte rune.
func snapRuneStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// ExtractRelevant selects windows of text around keyword occurrences so the
// oracle context stays small and on-topic. Overlapping windows are merged
// and joined in document order. When no keyword matches, it falls back to a
// fixed-length prefix of the full text. The result never exceeds maxChars.
func ExtractRelevant(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 3500
	}
	if len(text) <= maxChars {
		return text
	}

	lower := strings.ToLower(text)

	type span struct{ start, end int }
	var spans []span
	for _, kw := range evidenceKeywords {
		from := 0
		for {
			idx := strings.Index(lower[from:], kw)
			if idx < 0 {
				break
			}
			hit := from + idx
			s := hit - windowRadius
			if s < 0 {
				s = 0
			}
			e := hit + len(kw) + windowRadius
			if e > len(text) {
				e = len(text)
			}
			spans = append(spans, span{snapRuneStart(text, s), snapRuneStart(text, e)})
			from = hit + len(kw)
		}
	}

	if len(spans) == 0 {
		return text[:snapRuneStart(text, maxChars)]
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	// Merge overlapping windows.
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}

	var b strings.Builder
	for _, sp := range merged {
		sep := ""
		if b.Len() > 0 {
			sep = windowJoiner
		}
		// The separator counts against the budget too.
		remaining := maxChars - b.Len() - len(sep)
		if remaining <= 0 {
			break
		}
		chunk := text[sp.start:sp.end]
		if len(chunk) > remaining {
			chunk = chunk[:snapRuneStart(chunk, remaining)]
		}
		if chunk == "" {
			break
		}
		b.WriteString(sep)
		b.WriteString(chunk)
	}
	return b.String()
}
