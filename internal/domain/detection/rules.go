package detection

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reason tags attached to findings
const (
	ReasonRecentOperatorChange     = "recent_operator_change"
	ReasonMissingOperator          = "missing_operator"
	ReasonDisposableDomain         = "disposable_domain"
	ReasonMalformedEmail           = "malformed_email"
	ReasonLookalikeDomain          = "lookalike_domain"
	ReasonBlacklistedPattern       = "blacklisted_pattern"
	ReasonCountryTerritoryMismatch = "country_territory_mismatch"
)

// Rules holds every tunable of the detectors. Values come from configuration.
type Rules struct {
	// HighRiskThreshold is exclusive: an account is high-risk when total > threshold
	HighRiskThreshold decimal.Decimal
	Phone             PhoneRules
	Email             EmailRules
	Geo               GeoRules
}

// PhoneRules configures the phone detector
type PhoneRules struct {
	// RecencyWindow limits which phone changes count; zero counts every recorded change
	RecencyWindow         time.Duration
	RecentChangeWeight    decimal.Decimal
	MissingOperatorWeight decimal.Decimal
}

// EmailRules configures the email detector
type EmailRules struct {
	DisposableDomains []string
	BlacklistPatterns []*regexp.Regexp
	// TrustedDomains are common mail providers that lookalike domains imitate
	TrustedDomains    []string
	DisposableWeight  decimal.Decimal
	MalformedWeight   decimal.Decimal
	BlacklistedWeight decimal.Decimal
	LookalikeWeight   decimal.Decimal
	Timeline          []TimelineWindow
}

// TimelineWindow is one bucket of the email timeline report
type TimelineWindow struct {
	Label  string
	Window time.Duration
}

// GeoRules configures the geographic consistency checker
type GeoRules struct {
	// TerritoryCountries maps a territory to the country code it belongs to.
	// Territories absent from the map are compared by code equality.
	TerritoryCountries map[string]string
	MismatchWeight     decimal.Decimal
}

// NormalizeTerritoryCountries upper-cases and trims both sides of a territory mapping
func NormalizeTerritoryCountries(mapping map[string]string) map[string]string {
	normalized := make(map[string]string, len(mapping))
	for territory, country := range mapping {
		normalized[normalizeCode(territory)] = normalizeCode(country)
	}
	return normalized
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
