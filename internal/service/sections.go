package service

import (
	"strings"

	"github.com/aspire-solutions/councilkb/internal/domain"
)

// sectionRule maps heading keywords to a canonical section tag. Rules are
// evaluated in order and the first match wins, so ordering encodes precedence
// and must stay stable across re-ingestion.
type sectionRule struct {
	keywords []string
	section  domain.Section
}

var sectionRules = []sectionRule{
	{[]string{"bin", "waste", "recycling"}, domain.SectionWasteBins},
	{[]string{"rates", "water"}, domain.SectionRatesPayments},
	{[]string{"fees", "charges"}, domain.SectionFeesCharges},
	{[]string{"hours", "library", "pool"}, domain.SectionFacilitiesHours},
	{[]string{"councillor"}, domain.SectionCouncillors},
	{[]string{"parking", "permit", "infringement"}, domain.SectionParkingPermits},
	{[]string{"planning", "development"}, domain.SectionPlanningDevelopment},
	{[]string{"service timeframe"}, domain.SectionServiceTimeframes},
	{[]string{"report", "request", "complaint"}, domain.SectionServiceRequests},
}

var emergencyKeywords = []string{"emergency", "after hours", "after-hours", "urgent", "disaster"}

var highTrafficSections = map[domain.Section]bool{
	domain.SectionWasteBins:     true,
	domain.SectionFeesCharges:   true,
	domain.SectionRatesPayments: true,
}

// ClassifySection maps a free-text heading to a canonical section tag via
// case-insensitive substring matching against the ordered rule table.
func ClassifySection(heading string) domain.Section {
	lower := strings.ToLower(heading)
	for _, rule := range sectionRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.section
			}
		}
	}
	return domain.SectionGeneral
}

// SectionPriority assigns the advisory ranking tier for a chunk. Derived
// lookups always take the strongest tier, emergency headings the next, a
// small set of high-traffic sections a middle tier, everything else the
// default.
func SectionPriority(heading string, section domain.Section, kind domain.ChunkKind) int {
	if kind == domain.ChunkKindDerivedLookup {
		return domain.PriorityDerived
	}

	lower := strings.ToLower(heading)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return domain.PriorityEmergency
		}
	}

	if highTrafficSections[section] {
		return domain.PriorityHighTraffic
	}

	return domain.PriorityDefault
}
