package detection

import (
	"testing"
	"time"

	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhoneStrategy_Detect(t *testing.T) {
	changed := domain.NewTimestamp(testAsOf.Add(-90 * 24 * time.Hour))

	tests := []struct {
		name            string
		record          domain.AccountRecord
		recencyWindow   time.Duration
		expectedReasons []string
	}{
		{
			name:            "Known operator, no change - no detection",
			record:          domain.AccountRecord{ID: "1", Operator: "ORAN"},
			expectedReasons: nil,
		},
		{
			name:            "Phone change without window - detected",
			record:          domain.AccountRecord{ID: "2", Operator: "ORAN", PhoneChangeDate: changed},
			expectedReasons: []string{ReasonRecentOperatorChange},
		},
		{
			name:            "Phone change outside window - ignored",
			record:          domain.AccountRecord{ID: "3", Operator: "ORAN", PhoneChangeDate: changed},
			recencyWindow:   30 * 24 * time.Hour,
			expectedReasons: nil,
		},
		{
			name:            "Phone change inside window - detected",
			record:          domain.AccountRecord{ID: "4", Operator: "ORAN", PhoneChangeDate: changed},
			recencyWindow:   180 * 24 * time.Hour,
			expectedReasons: []string{ReasonRecentOperatorChange},
		},
		{
			name:            "Unknown operator",
			record:          domain.AccountRecord{ID: "5", Operator: domain.UnknownOperator},
			expectedReasons: []string{ReasonMissingOperator},
		},
		{
			name:            "Change and missing operator",
			record:          domain.AccountRecord{ID: "6", PhoneChangeDate: changed},
			expectedReasons: []string{ReasonRecentOperatorChange, ReasonMissingOperator},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := testRules()
			rules.Phone.RecencyWindow = tt.recencyWindow
			context := NewDetectionContext(&rules, testAsOf)

			findings := NewPhoneStrategy().Detect(tt.record, context)

			var reasons []string
			for _, f := range findings {
				assert.Equal(t, domain.CategoryPhone, f.Category)
				assert.Equal(t, tt.record.ID, f.AccountID)
				reasons = append(reasons, f.Reason)
			}
			assert.Equal(t, tt.expectedReasons, reasons)
		})
	}
}

func TestPhoneStrategy_Summarize(t *testing.T) {
	context := testContext()
	strategy := NewPhoneStrategy()
	aggregator := NewRiskAggregator(context.Rules.HighRiskThreshold)

	records := []domain.AccountRecord{
		{ID: "1", Operator: "ORAN", Territory: "Metropole"},
		{ID: "2", Operator: "ORAN", Territory: "Metropole", PhoneChangeDate: domain.NewTimestamp(testAsOf)},
		{ID: "3", Operator: domain.UnknownOperator},
	}
	scores := make([]domain.RiskScore, len(records))
	for i, r := range records {
		scores[i] = aggregator.Aggregate(r.ID, strategy.Detect(r, context))
	}

	analysis := strategy.Summarize(records, scores)

	require.NotNil(t, analysis.Anomalies)
	assert.Equal(t, 2, analysis.AccountsFlagged)
	assert.Equal(t, 1, analysis.RecentChanges)
	assert.Equal(t, map[string]int{ReasonRecentOperatorChange: 1, ReasonMissingOperator: 1}, analysis.Anomalies)
	assert.Equal(t, map[string]int{"ORAN": 2, domain.UnknownOperator: 1}, analysis.OperatorDistribution)
	assert.Equal(t, map[string]int{"Metropole": 2, domain.UnknownOperator: 1}, analysis.TerritoryDistribution)
}
