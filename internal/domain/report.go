package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Report is the dataset-wide aggregate built from all risk scores
type Report struct {
	RunID            uuid.UUID         `json:"run_id"`
	DatasetID        uuid.UUID         `json:"dataset_id"`
	GeneratedAt      time.Time         `json:"generated_at"`
	Summary          Summary           `json:"summary"`
	RiskDistribution []RiskBucket      `json:"risk_distribution"`
	PhoneAnalysis    PhoneAnalysis     `json:"phone_analysis"`
	EmailAnalysis    EmailAnalysis     `json:"email_analysis"`
	GeoAnalysis      GeoAnalysis       `json:"geographic_analysis"`
	HighRisk         []HighRiskAccount `json:"high_risk_accounts"`
}

// Summary holds global counts and statistics.
// Statistics are null when the dataset is empty.
type Summary struct {
	TotalAccounts   int                 `json:"total_accounts"`
	HighRiskCount   int                 `json:"high_risk_count"`
	HighRiskPercent decimal.NullDecimal `json:"high_risk_percent"`
	MeanRisk        decimal.NullDecimal `json:"mean_risk"`
	MedianRisk      decimal.NullDecimal `json:"median_risk"`
	SkippedRows     int                 `json:"skipped_rows"`
	DateErrors      int                 `json:"date_errors"`
	RecentActivity  RecentActivity      `json:"recent_activity"`
}

// RecentActivity counts accounts created within the recent window
type RecentActivity struct {
	Window        string `json:"window"`
	NewAccounts   int    `json:"new_accounts"`
	HighRiskCount int    `json:"high_risk"`
}

// RiskBucket is one histogram bar of total risk values
type RiskBucket struct {
	TotalRisk decimal.Decimal `json:"total_risk"`
	Count     int             `json:"count"`
}

// PhoneAnalysis aggregates phone findings and operator metadata
type PhoneAnalysis struct {
	Anomalies             map[string]int `json:"anomalies"`
	AccountsFlagged       int            `json:"accounts_flagged"`
	RecentChanges         int            `json:"recent_changes"`
	OperatorDistribution  map[string]int `json:"operator_distribution"`
	TerritoryDistribution map[string]int `json:"territory_distribution"`
}

// EmailAnalysis aggregates email findings
type EmailAnalysis struct {
	Patterns          map[string]int   `json:"patterns"`
	AccountsFlagged   int              `json:"accounts_flagged"`
	SuspiciousDomains map[string]int   `json:"suspicious_domains"`
	Timeline          []TimelineBucket `json:"timeline"`
}

// TimelineBucket counts flagged accounts created within Window of the report time
type TimelineBucket struct {
	Label  string `json:"label"`
	Window string `json:"window"`
	Count  int    `json:"count"`
}

// GeoAnalysis aggregates country/territory consistency
type GeoAnalysis struct {
	CountryDistribution map[string]int `json:"country_distribution"`
	MismatchCount       int            `json:"mismatch_count"`
	Mismatches          []MismatchPair `json:"mismatches"`
}

// MismatchPair counts accounts for one (country_code, territory) mismatch
type MismatchPair struct {
	CountryCode string `json:"country_code"`
	Territory   string `json:"territory"`
	Count       int    `json:"count"`
}

// HighRiskAccount is one row of the high-risk listing
type HighRiskAccount struct {
	ID          string          `json:"id"`
	RiskScore   decimal.Decimal `json:"risk_score"`
	PhoneRisk   decimal.Decimal `json:"phone_risk"`
	EmailRisk   decimal.Decimal `json:"email_risk"`
	GeoRisk     decimal.Decimal `json:"geo_risk"`
	CreatedDate Timestamp       `json:"created_date"`
	Country     string          `json:"country"`
	Operator    string          `json:"operator"`
	Reasons     []string        `json:"reasons"`
}
