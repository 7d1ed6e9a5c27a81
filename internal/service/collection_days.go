package service

import (
	"regexp"
	"strings"

	"github.com/aspire-solutions/councilkb/internal/domain"
)

// CollectionDaysHeading is the exact block heading the derived-fact extractor
// is keyed on. Other recurring-fact block types need their own extractor
// following the same scan/context/emit shape.
const CollectionDaysHeading = "BIN COLLECTION DAYS"

var (
	divisionPattern   = regexp.MustCompile(`(?i)^Division\s+(\d+)\s*[–—-]\s*(.+?):\s*$`)
	typicalDayPattern = regexp.MustCompile(`(?i)^Typical day:\s*([A-Za-z]+)\s*$`)
)

// ParseCollectionDays extracts {suburb, typical day, division} facts from a
// bin-collection block body. A division line opens a new context and clears
// pending suburbs; comma-separated lines accumulate suburbs; a typical-day
// line emits one record per pending suburb and clears the accumulator. Any
// other line (e.g. the instructional header) is ignored.
func ParseCollectionDays(body string) []domain.CollectionDay {
	var records []domain.CollectionDay
	var division string
	var pending []string

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := divisionPattern.FindStringSubmatch(line); m != nil {
			division = "Division " + m[1] + " - " + strings.TrimSpace(m[2])
			pending = nil
			continue
		}

		if m := typicalDayPattern.FindStringSubmatch(line); m != nil {
			day := canonicalWeekday(m[1])
			for _, suburb := range pending {
				records = append(records, domain.CollectionDay{
					Suburb:     suburb,
					TypicalDay: day,
					Division:   division,
				})
			}
			pending = nil
			continue
		}

		if strings.Contains(line, ",") {
			for _, part := range strings.Split(line, ",") {
				suburb := strings.TrimSpace(part)
				if suburb != "" {
					pending = append(pending, suburb)
				}
			}
		}
	}

	return records
}

func canonicalWeekday(day string) string {
	lower := strings.ToLower(day)
	if lower == "" {
		return day
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}
