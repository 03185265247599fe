package detection

import (
	"github.com/fraudwatch/account-risk/internal/domain"
)

// PhoneStrategy flags recent phone operator changes and unknown operators
type PhoneStrategy struct{}

// NewPhoneStrategy creates a new phone anomaly detection strategy
func NewPhoneStrategy() *PhoneStrategy {
	return &PhoneStrategy{}
}

// Name returns the strategy name
func (s *PhoneStrategy) Name() string {
	return "Phone Anomalies"
}

// Category returns the phone category
func (s *PhoneStrategy) Category() domain.Category {
	return domain.CategoryPhone
}

// Detect checks the phone change date and the operator of an account
func (s *PhoneStrategy) Detect(record domain.AccountRecord, context *DetectionContext) []domain.Finding {
	rules := context.Rules.Phone
	var findings []domain.Finding

	if s.isRecentChange(record.PhoneChangeDate, context) {
		findings = append(findings, domain.Finding{
			AccountID: record.ID,
			Category:  domain.CategoryPhone,
			Weight:    rules.RecentChangeWeight,
			Reason:    ReasonRecentOperatorChange,
		})
	}

	if isUnknownOperator(record.Operator) {
		findings = append(findings, domain.Finding{
			AccountID: record.ID,
			Category:  domain.CategoryPhone,
			Weight:    rules.MissingOperatorWeight,
			Reason:    ReasonMissingOperator,
		})
	}

	return findings
}

func (s *PhoneStrategy) isRecentChange(changed domain.Timestamp, context *DetectionContext) bool {
	if !changed.Valid {
		return false
	}
	window := context.Rules.Phone.RecencyWindow
	return window <= 0 || changed.Within(context.AsOf, window)
}

// Summarize builds the phone section of the report.
// scores[i] must belong to records[i].
func (s *PhoneStrategy) Summarize(records []domain.AccountRecord, scores []domain.RiskScore) domain.PhoneAnalysis {
	analysis := domain.PhoneAnalysis{
		Anomalies:             make(map[string]int),
		OperatorDistribution:  make(map[string]int),
		TerritoryDistribution: make(map[string]int),
	}

	for i, record := range records {
		analysis.OperatorDistribution[labelOrUnknown(record.Operator)]++
		analysis.TerritoryDistribution[labelOrUnknown(record.Territory)]++
		if record.PhoneChangeDate.Valid {
			analysis.RecentChanges++
		}

		findings := findingsOf(scores[i], domain.CategoryPhone)
		if len(findings) > 0 {
			analysis.AccountsFlagged++
		}
		for _, f := range findings {
			analysis.Anomalies[f.Reason]++
		}
	}

	return analysis
}
