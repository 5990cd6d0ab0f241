package local

import (
	"context"
	"regexp"
	"sort"

	"github.com/siherrmann/docgraph/services"
)

const replacement = "[REDACTED]"

var piiPatterns = []struct {
	category string
	pattern  *regexp.Regexp
}{
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"iban", regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`)},
	// phone last, it would otherwise shadow the more specific number formats
	{"phone", regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)},
}

// RegexRedactor masks common personal data formats with a fixed replacement
// token. It is a baseline; deployments with stricter requirements plug in an
// external PII service behind the Redactor interface.
type RegexRedactor struct{}

// NewRegexRedactor creates a new RegexRedactor.
func NewRegexRedactor() *RegexRedactor {
	return &RegexRedactor{}
}

// Redact replaces every match of the known patterns and reports one detection
// per match with the offset and length in the original text. Overlapping
// matches from different patterns are reported once.
func (r *RegexRedactor) Redact(ctx context.Context, text string) (string, []services.Detection, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	detections := []services.Detection{}
	covered := make([]bool, len(text))
	for _, entry := range piiPatterns {
		for _, match := range entry.pattern.FindAllStringIndex(text, -1) {
			if overlaps(covered, match[0], match[1]) {
				continue
			}
			for i := match[0]; i < match[1]; i++ {
				covered[i] = true
			}
			detections = append(detections, services.Detection{
				Category: entry.category,
				Offset:   match[0],
				Length:   match[1] - match[0],
			})
		}
	}

	if len(detections) == 0 {
		return text, nil, nil
	}

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Offset < detections[j].Offset
	})

	redacted := ""
	last := 0
	for _, detection := range detections {
		redacted += text[last:detection.Offset] + replacement
		last = detection.Offset + detection.Length
	}
	redacted += text[last:]

	return redacted, detections, nil
}

func overlaps(covered []bool, start int, end int) bool {
	for i := start; i < end; i++ {
		if covered[i] {
			return true
		}
	}
	return false
}
