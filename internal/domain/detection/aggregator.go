package detection

import (
	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/shopspring/decimal"
)

// RiskAggregator folds an account's findings into its RiskScore
//
// The fold is pure: the score depends only on the set of findings, and
// decimal addition keeps the sums exact whatever order the findings arrive in.
type RiskAggregator struct {
	threshold decimal.Decimal
}

// NewRiskAggregator creates an aggregator classifying totals above threshold as high-risk
func NewRiskAggregator(threshold decimal.Decimal) *RiskAggregator {
	return &RiskAggregator{threshold: threshold}
}

// Aggregate sums findings per category and derives the total
func (a *RiskAggregator) Aggregate(accountID string, findings []domain.Finding) domain.RiskScore {
	score := domain.RiskScore{
		AccountID: accountID,
		PhoneRisk: decimal.Zero,
		EmailRisk: decimal.Zero,
		GeoRisk:   decimal.Zero,
	}

	for _, f := range findings {
		weight := f.Weight
		if weight.IsNegative() {
			weight = decimal.Zero
		}

		switch f.Category {
		case domain.CategoryPhone:
			score.PhoneRisk = score.PhoneRisk.Add(weight)
		case domain.CategoryEmail:
			score.EmailRisk = score.EmailRisk.Add(weight)
		case domain.CategoryGeo:
			score.GeoRisk = score.GeoRisk.Add(weight)
		default:
			continue
		}
		score.Findings = append(score.Findings, f)
	}

	score.TotalRisk = score.PhoneRisk.Add(score.EmailRisk).Add(score.GeoRisk)
	score.IsHighRisk = score.TotalRisk.GreaterThan(a.threshold)

	return score
}
