package detection

import (
	"sort"
	"strings"

	"github.com/fraudwatch/account-risk/internal/domain"
)

// GeoStrategy checks that an account's country code agrees with the territory
// of its phone number
//
// Territory and country codes live in different code spaces, so the
// comparison goes through the configured territory→country mapping.
type GeoStrategy struct{}

// NewGeoStrategy creates a new geographic consistency strategy
func NewGeoStrategy() *GeoStrategy {
	return &GeoStrategy{}
}

// Name returns the strategy name
func (s *GeoStrategy) Name() string {
	return "Geographic Consistency"
}

// Category returns the geo category
func (s *GeoStrategy) Category() domain.Category {
	return domain.CategoryGeo
}

// Detect flags a country code that does not match the account's territory
func (s *GeoStrategy) Detect(record domain.AccountRecord, context *DetectionContext) []domain.Finding {
	if !s.isMismatch(record, context.Rules.Geo) {
		return nil
	}

	return []domain.Finding{{
		AccountID: record.ID,
		Category:  domain.CategoryGeo,
		Weight:    context.Rules.Geo.MismatchWeight,
		Reason:    ReasonCountryTerritoryMismatch,
	}}
}

// isMismatch reports a mismatch only when both sides are known
func (s *GeoStrategy) isMismatch(record domain.AccountRecord, rules GeoRules) bool {
	country := normalizeCode(record.CountryCode)
	territory := normalizeCode(record.Territory)
	if country == "" || territory == "" {
		return false
	}

	expected, ok := rules.TerritoryCountries[territory]
	if !ok {
		expected = territory
	}
	return expected != country
}

// Summarize builds the geographic section of the report.
// scores[i] must belong to records[i].
func (s *GeoStrategy) Summarize(records []domain.AccountRecord, scores []domain.RiskScore) domain.GeoAnalysis {
	analysis := domain.GeoAnalysis{
		CountryDistribution: make(map[string]int),
		Mismatches:          make([]domain.MismatchPair, 0),
	}

	type pair struct{ country, territory string }
	pairs := make(map[pair]int)

	for i, record := range records {
		analysis.CountryDistribution[labelOrUnknown(normalizeCode(record.CountryCode))]++

		if len(findingsOf(scores[i], domain.CategoryGeo)) == 0 {
			continue
		}
		analysis.MismatchCount++
		pairs[pair{normalizeCode(record.CountryCode), strings.TrimSpace(record.Territory)}]++
	}

	for p, count := range pairs {
		analysis.Mismatches = append(analysis.Mismatches, domain.MismatchPair{
			CountryCode: p.country,
			Territory:   p.territory,
			Count:       count,
		})
	}
	sort.Slice(analysis.Mismatches, func(i, j int) bool {
		a, b := analysis.Mismatches[i], analysis.Mismatches[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.CountryCode != b.CountryCode {
			return a.CountryCode < b.CountryCode
		}
		return a.Territory < b.Territory
	})

	return analysis
}
