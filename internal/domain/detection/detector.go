package detection

import (
	"context"
	"sync"

	"github.com/fraudwatch/account-risk/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Detector performs anomaly detection on accounts using pluggable strategies
//
// Strategies are independent of each other and of other accounts, so the
// Detector fans accounts out over a bounded number of goroutines. Each
// score is written to the slot of its account, which makes the output
// independent of scheduling.
type Detector struct {
	phone      *PhoneStrategy
	email      *EmailStrategy
	geo        *GeoStrategy
	strategies []DetectionStrategy
	aggregator *RiskAggregator
	rules      Rules
	workers    int
}

// Outcome is the result of one detection pass over a dataset.
// Scores[i] belongs to the dataset's Records[i].
type Outcome struct {
	Scores []domain.RiskScore
	Phone  domain.PhoneAnalysis
	Email  domain.EmailAnalysis
	Geo    domain.GeoAnalysis
}

// NewDetector creates a detector running the phone, email and geo strategies
func NewDetector(rules Rules, workers int) *Detector {
	if workers < 1 {
		workers = 1
	}

	phone := NewPhoneStrategy()
	email := NewEmailStrategy()
	geo := NewGeoStrategy()

	return &Detector{
		phone:      phone,
		email:      email,
		geo:        geo,
		strategies: []DetectionStrategy{phone, email, geo},
		aggregator: NewRiskAggregator(rules.HighRiskThreshold),
		rules:      rules,
		workers:    workers,
	}
}

// AnalyzeAccount runs all strategies on one account and folds the findings into its score
func (d *Detector) AnalyzeAccount(record domain.AccountRecord, context *DetectionContext) domain.RiskScore {
	findings := make([]domain.Finding, 0)
	for _, strategy := range d.strategies {
		findings = append(findings, strategy.Detect(record, context)...)
	}
	return d.aggregator.Aggregate(record.ID, findings)
}

// Run scores every account of the dataset and builds the per-category summaries
func (d *Detector) Run(ctx context.Context, dataset *domain.Dataset) (*Outcome, error) {
	detectionContext := NewDetectionContext(&d.rules, dataset.LoadedAt)
	records := dataset.Records
	scores := make([]domain.RiskScore, len(records))

	chunk := (len(records) + d.workers - 1) / d.workers
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for start := 0; start < len(records); start += chunk {
		end := min(start+chunk, len(records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				scores[i] = d.AnalyzeAccount(records[i], detectionContext)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	outcome := &Outcome{Scores: scores}

	// Summaries only read records and scores, so they can run side by side
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		outcome.Phone = d.phone.Summarize(records, scores)
	}()
	go func() {
		defer wg.Done()
		outcome.Email = d.email.Summarize(records, scores, detectionContext)
	}()
	go func() {
		defer wg.Done()
		outcome.Geo = d.geo.Summarize(records, scores)
	}()
	wg.Wait()

	return outcome, nil
}
