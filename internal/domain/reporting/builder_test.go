package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/fraudwatch/account-risk/internal/domain/detection"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func rules() detection.Rules {
	return detection.Rules{
		HighRiskThreshold: decimal.NewFromInt(3),
		Phone: detection.PhoneRules{
			RecentChangeWeight:    decimal.NewFromInt(2),
			MissingOperatorWeight: decimal.RequireFromString("0.5"),
		},
		Email: detection.EmailRules{
			DisposableDomains: []string{"mailinator.com"},
			BlacklistPatterns: []*regexp.Regexp{regexp.MustCompile(`fraud`)},
			DisposableWeight:  decimal.NewFromInt(2),
			MalformedWeight:   decimal.NewFromInt(1),
			BlacklistedWeight: decimal.RequireFromString("1.5"),
			LookalikeWeight:   decimal.NewFromInt(1),
		},
		Geo: detection.GeoRules{
			TerritoryCountries: map[string]string{},
			MismatchWeight:     decimal.RequireFromString("1.5"),
		},
	}
}

func build(t *testing.T, dataset *domain.Dataset) domain.Report {
	t.Helper()
	outcome, err := detection.NewDetector(rules(), 3).Run(context.Background(), dataset)
	require.NoError(t, err)
	return NewBuilder(Options{RecentWindow: 7 * 24 * time.Hour}).Build(dataset, outcome)
}

func fixture() *domain.Dataset {
	changed := domain.NewTimestamp(asOf.Add(-24 * time.Hour))
	return &domain.Dataset{
		ID:       uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		LoadedAt: asOf,
		Skipped:  1,
		Records: []domain.AccountRecord{
			// 0: clean
			{ID: "A0", CountryCode: "FR", Territory: "FR", Operator: "ORAN", CreatedDate: domain.NewTimestamp(asOf.Add(-time.Hour))},
			// 1.5: geo mismatch
			{ID: "A1", CountryCode: "FR", Territory: "DE", Operator: "ORAN"},
			// 4: phone change + disposable email
			{ID: "A2", CountryCode: "FR", Territory: "FR", Operator: "ORAN", PhoneChangeDate: changed, Email: "x@mailinator.com", CreatedDate: domain.NewTimestamp(asOf.Add(-48 * time.Hour))},
			// 5.5: phone change + disposable + geo
			{ID: "A3", CountryCode: "BE", Territory: "FR", Operator: "ORAN", PhoneChangeDate: changed, Email: "y@mailinator.com"},
			// 4: same total as A2
			{ID: "A4", CountryCode: "FR", Territory: "FR", Operator: "ORAN", PhoneChangeDate: changed, Email: "z@mailinator.com", CreatedDate: domain.NewTimestamp(asOf.Add(-30 * 24 * time.Hour))},
		},
	}
}

func TestBuilder_Summary(t *testing.T) {
	report := build(t, fixture())

	assert.Equal(t, 5, report.Summary.TotalAccounts)
	assert.Equal(t, 3, report.Summary.HighRiskCount)
	assert.Equal(t, 1, report.Summary.SkippedRows)
	require.True(t, report.Summary.HighRiskPercent.Valid)
	assert.Equal(t, "60", report.Summary.HighRiskPercent.Decimal.String())
	// (0 + 1.5 + 4 + 5.5 + 4) / 5
	assert.Equal(t, "3", report.Summary.MeanRisk.Decimal.String())
	assert.Equal(t, "4", report.Summary.MedianRisk.Decimal.String())

	assert.Equal(t, 2, report.Summary.RecentActivity.NewAccounts)
	assert.Equal(t, 1, report.Summary.RecentActivity.HighRiskCount)
}

func TestBuilder_Distribution(t *testing.T) {
	report := build(t, fixture())

	var got []string
	total := 0
	for _, bucket := range report.RiskDistribution {
		got = append(got, fmt.Sprintf("%s:%d", bucket.TotalRisk, bucket.Count))
		total += bucket.Count
	}

	assert.Equal(t, []string{"0:1", "1.5:1", "4:2", "5.5:1"}, got)
	assert.Equal(t, report.Summary.TotalAccounts, total)
}

func TestBuilder_HighRiskOrdering(t *testing.T) {
	report := build(t, fixture())

	var ids []string
	for _, account := range report.HighRisk {
		ids = append(ids, account.ID)
		assert.True(t, account.RiskScore.Equal(account.PhoneRisk.Add(account.EmailRisk).Add(account.GeoRisk)))
	}
	assert.Equal(t, []string{"A3", "A2", "A4"}, ids)
	assert.Equal(t, []string{
		detection.ReasonRecentOperatorChange,
		detection.ReasonDisposableDomain,
		detection.ReasonCountryTerritoryMismatch,
	}, report.HighRisk[0].Reasons)
}

func TestBuilder_GeoAnalysis(t *testing.T) {
	report := build(t, fixture())

	assert.Equal(t, 2, report.GeoAnalysis.MismatchCount)
	assert.ElementsMatch(t, []domain.MismatchPair{
		{CountryCode: "FR", Territory: "DE", Count: 1},
		{CountryCode: "BE", Territory: "FR", Count: 1},
	}, report.GeoAnalysis.Mismatches)
}

func TestBuilder_Deterministic(t *testing.T) {
	first, err := json.Marshal(build(t, fixture()))
	require.NoError(t, err)
	second, err := json.Marshal(build(t, fixture()))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestBuilder_EmptyDataset(t *testing.T) {
	report := build(t, &domain.Dataset{ID: uuid.New(), LoadedAt: asOf})

	assert.Equal(t, 0, report.Summary.TotalAccounts)
	assert.False(t, report.Summary.MeanRisk.Valid)
	assert.False(t, report.Summary.MedianRisk.Valid)
	assert.False(t, report.Summary.HighRiskPercent.Valid)
	assert.Empty(t, report.RiskDistribution)
	assert.Empty(t, report.HighRisk)

	data, err := json.Marshal(report.Summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mean_risk":null`)
}

func TestBuilder_RunIDDerivedFromDataset(t *testing.T) {
	dataset := fixture()
	report := build(t, dataset)

	assert.Equal(t, dataset.ID, report.DatasetID)
	assert.Equal(t, uuid.NewSHA1(runNamespace, dataset.ID[:]), report.RunID)
	assert.Equal(t, asOf, report.GeneratedAt)
}
