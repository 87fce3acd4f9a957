package pipeline

import (
	"sort"
	"strings"
)

// PageBreakMarker separates page texts in the combined document so segment
// provenance survives concatenation.
const PageBreakMarker = "\n\n----- PAGE BREAK -----\n\n"

// Combine concatenates page texts in page order with explicit page-break
// markers. Failed pages contribute empty text and are skipped; a run where
// every page failed combines to the empty string.
func Combine(results []ExtractionResult) string {
	ordered := make([]ExtractionResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].PageNumber < ordered[j].PageNumber
	})

	var texts []string
	for _, r := range ordered {
		if t := strings.TrimSpace(r.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, PageBreakMarker)
}
