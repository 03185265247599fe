package reporting

import (
	"sort"
	"time"

	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/fraudwatch/account-risk/internal/domain/detection"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// runNamespace seeds report run ids, which are derived from the dataset id
var runNamespace = uuid.MustParse("6f1d0c2e-4b7a-4f3e-9a41-2d5e8c7b9f10")

var hundred = decimal.NewFromInt(100)

// Options configures report building
type Options struct {
	// RecentWindow bounds the "recent activity" section of the summary
	RecentWindow time.Duration
}

// Builder assembles the dataset-wide report from a detection outcome
//
// Build is a pure function of its inputs: the same dataset and outcome
// always produce the same report, down to the run id.
type Builder struct {
	opts Options
}

// NewBuilder creates a new report builder
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// Build creates the report. outcome.Scores[i] must belong to dataset.Records[i].
func (b *Builder) Build(dataset *domain.Dataset, outcome *detection.Outcome) domain.Report {
	return domain.Report{
		RunID:            uuid.NewSHA1(runNamespace, dataset.ID[:]),
		DatasetID:        dataset.ID,
		GeneratedAt:      dataset.LoadedAt,
		Summary:          b.summary(dataset, outcome.Scores),
		RiskDistribution: distribution(outcome.Scores),
		PhoneAnalysis:    outcome.Phone,
		EmailAnalysis:    outcome.Email,
		GeoAnalysis:      outcome.Geo,
		HighRisk:         highRisk(dataset.Records, outcome.Scores),
	}
}

func (b *Builder) summary(dataset *domain.Dataset, scores []domain.RiskScore) domain.Summary {
	summary := domain.Summary{
		TotalAccounts: len(scores),
		SkippedRows:   dataset.Skipped,
		DateErrors:    dataset.DateErrors,
		RecentActivity: domain.RecentActivity{
			Window: b.opts.RecentWindow.String(),
		},
	}

	totals := make([]decimal.Decimal, len(scores))
	for i, score := range scores {
		totals[i] = score.TotalRisk
		if score.IsHighRisk {
			summary.HighRiskCount++
		}
		if dataset.Records[i].CreatedDate.Within(dataset.LoadedAt, b.opts.RecentWindow) {
			summary.RecentActivity.NewAccounts++
			if score.IsHighRisk {
				summary.RecentActivity.HighRiskCount++
			}
		}
	}

	if len(totals) == 0 {
		return summary
	}

	n := decimal.NewFromInt(int64(len(totals)))
	summary.HighRiskPercent = decimal.NewNullDecimal(
		decimal.NewFromInt(int64(summary.HighRiskCount)).Mul(hundred).DivRound(n, 2),
	)
	summary.MeanRisk = decimal.NewNullDecimal(decimal.Sum(totals[0], totals[1:]...).DivRound(n, 4))
	summary.MedianRisk = decimal.NewNullDecimal(median(totals))

	return summary
}

// median sorts a copy of values; values must not be empty
func median(values []decimal.Decimal) decimal.Decimal {
	sorted := append([]decimal.Decimal(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}

// distribution builds a histogram with one bucket per distinct total risk
func distribution(scores []domain.RiskScore) []domain.RiskBucket {
	index := make(map[string]int)
	buckets := make([]domain.RiskBucket, 0)

	for _, score := range scores {
		key := score.TotalRisk.String()
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, domain.RiskBucket{TotalRisk: score.TotalRisk})
		}
		buckets[i].Count++
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].TotalRisk.LessThan(buckets[j].TotalRisk)
	})
	return buckets
}

// highRisk lists high-risk accounts by descending total risk, then id
func highRisk(records []domain.AccountRecord, scores []domain.RiskScore) []domain.HighRiskAccount {
	accounts := make([]domain.HighRiskAccount, 0)
	for i, score := range scores {
		if !score.IsHighRisk {
			continue
		}
		record := records[i]
		accounts = append(accounts, domain.HighRiskAccount{
			ID:          record.ID,
			RiskScore:   score.TotalRisk,
			PhoneRisk:   score.PhoneRisk,
			EmailRisk:   score.EmailRisk,
			GeoRisk:     score.GeoRisk,
			CreatedDate: record.CreatedDate,
			Country:     record.CountryCode,
			Operator:    record.Operator,
			Reasons:     score.Reasons(),
		})
	}

	sort.Slice(accounts, func(i, j int) bool {
		if c := accounts[i].RiskScore.Cmp(accounts[j].RiskScore); c != 0 {
			return c > 0
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts
}
