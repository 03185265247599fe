package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnknownOperator is assigned to accounts whose phone number matched no
// reference range and that carry no operator of their own.
const UnknownOperator = "Unknown"

// Category identifies which detector produced a finding
type Category string

const (
	CategoryPhone Category = "phone"
	CategoryEmail Category = "email"
	CategoryGeo   Category = "geo"
)

// AccountRow is a raw account master row as read from a record source.
// All values are untrimmed text; normalization happens in the loader.
type AccountRow struct {
	ID              string
	CreatedDate     string
	CountryCode     string
	Territory       string
	Operator        string
	Phone           string
	PhoneChangeDate string
	Email           string
}

// OperatorRange is one row of the phone numbering reference table
type OperatorRange struct {
	Prefix    string
	Operator  string
	Territory string
}

// AccountRecord is one normalized customer account.
// Records are immutable once the loader hands them to a Dataset.
type AccountRecord struct {
	ID              string    `json:"id"`
	CreatedDate     Timestamp `json:"created_date"`
	CountryCode     string    `json:"country_code"`
	Territory       string    `json:"territory"`
	Operator        string    `json:"operator"`
	PhoneChangeDate Timestamp `json:"phone_change_date"`
	Email           string    `json:"email,omitempty"`
}

// Dataset is the unified record set produced by one load
type Dataset struct {
	ID       uuid.UUID
	LoadedAt time.Time
	Records  []AccountRecord

	// Skipped counts rows dropped because of an empty or duplicate id
	Skipped int
	// DateErrors counts date values that were discarded as unparseable
	DateErrors int
}

// Len returns the number of accounts in the dataset
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Finding is a single rule match contributing risk to one account
type Finding struct {
	AccountID string          `json:"account_id"`
	Category  Category        `json:"category"`
	Weight    decimal.Decimal `json:"risk_weight"`
	Reason    string          `json:"reason"`
}

// RiskScore is an account's aggregated per-category and total risk.
// TotalRisk is always PhoneRisk + EmailRisk + GeoRisk.
type RiskScore struct {
	AccountID  string          `json:"account_id"`
	PhoneRisk  decimal.Decimal `json:"phone_risk"`
	EmailRisk  decimal.Decimal `json:"email_risk"`
	GeoRisk    decimal.Decimal `json:"geo_risk"`
	TotalRisk  decimal.Decimal `json:"total_risk"`
	IsHighRisk bool            `json:"is_high_risk"`
	Findings   []Finding       `json:"findings,omitempty"`
}

// Reasons returns the reason tags of the score's findings in emission order
func (s RiskScore) Reasons() []string {
	reasons := make([]string, 0, len(s.Findings))
	for _, f := range s.Findings {
		reasons = append(reasons, f.Reason)
	}
	return reasons
}
