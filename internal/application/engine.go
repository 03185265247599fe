package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/fraudwatch/account-risk/internal/domain/detection"
	"github.com/fraudwatch/account-risk/internal/domain/reporting"
	"github.com/fraudwatch/account-risk/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle position of the engine
type State int

const (
	// StateEmpty means no dataset has been loaded
	StateEmpty State = iota
	// StateLoaded means a dataset is present but no report is cached
	StateLoaded
	// StateReady means the report for the current dataset is cached
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is one computed report together with the per-account scores it was built from
type Result struct {
	Dataset *domain.Dataset
	Report  domain.Report
	Scores  []domain.RiskScore
}

// RefreshResult reports the outcome of a Refresh
type RefreshResult struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	DatasetID string    `json:"dataset_id,omitempty"`
	Accounts  int       `json:"accounts"`
	Message   string    `json:"message,omitempty"`
}

const (
	RefreshSuccess = "success"
	RefreshError   = "error"
)

// Engine owns the loaded dataset and its cached report
//
// Reloads are serialized and swap the dataset under the write lock, so a
// reader sees either the old dataset with its report or the new one. A
// result computed for a dataset that was replaced meanwhile is returned to
// its callers but never cached. Concurrent requests for the same missing
// report share a single computation.
type Engine struct {
	loader   *Loader
	detector *detection.Detector
	builder  *reporting.Builder
	logger   *zap.Logger
	metrics  *metrics.Metrics

	reloadMu sync.Mutex

	mu      sync.RWMutex
	dataset *domain.Dataset
	result  *Result

	group        singleflight.Group
	computations atomic.Int64
}

// NewEngine creates an engine in the Empty state. m may be nil.
func NewEngine(
	loader *Loader,
	detector *detection.Detector,
	builder *reporting.Builder,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		loader:   loader,
		detector: detector,
		builder:  builder,
		logger:   logger.With(zap.String("component", "engine")),
		metrics:  m,
	}
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch {
	case e.dataset == nil:
		return StateEmpty
	case e.result == nil:
		return StateLoaded
	default:
		return StateReady
	}
}

// Dataset returns the currently loaded dataset, or nil
func (e *Engine) Dataset() *domain.Dataset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dataset
}

// Computations returns how many detection passes the engine has run
func (e *Engine) Computations() int64 {
	return e.computations.Load()
}

// Reload reads a new dataset and makes it current, discarding the cached
// report. It serves as the initial load as well. On failure the engine
// keeps its previous dataset and report.
func (e *Engine) Reload(ctx context.Context) (*domain.Dataset, error) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	start := time.Now()
	dataset, err := e.loader.Load(ctx)
	if err != nil {
		e.observeReload("error")
		e.logger.Error("Reload failed, keeping previous dataset",
			zap.Error(err),
			zap.Stringer("state", e.State()),
		)
		return nil, err
	}

	e.mu.Lock()
	e.dataset = dataset
	e.result = nil
	e.mu.Unlock()

	e.observeReload("success")
	if e.metrics != nil {
		e.metrics.DatasetAccounts.Set(float64(dataset.Len()))
	}
	e.logger.Info("Dataset loaded",
		zap.Stringer("dataset_id", dataset.ID),
		zap.Int("accounts", dataset.Len()),
		zap.Int("skipped", dataset.Skipped),
		zap.Int("date_errors", dataset.DateErrors),
		zap.Duration("duration", time.Since(start)),
	)
	return dataset, nil
}

// Compute returns the report for the current dataset, computing and caching it if needed.
// It fails with domain.ErrNoData while the engine is Empty.
func (e *Engine) Compute(ctx context.Context) (*Result, error) {
	e.mu.RLock()
	dataset, result := e.dataset, e.result
	e.mu.RUnlock()

	if result != nil {
		return result, nil
	}
	if dataset == nil {
		return nil, domain.ErrNoData
	}

	// The computation outlives any single caller so that a cancelled
	// request does not fail the others waiting on it.
	ch := e.group.DoChan(dataset.ID.String(), func() (any, error) {
		return e.computeAndCache(context.WithoutCancel(ctx), dataset)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) computeAndCache(ctx context.Context, dataset *domain.Dataset) (*Result, error) {
	e.mu.RLock()
	cached := e.result
	current := e.dataset
	e.mu.RUnlock()
	if cached != nil && current == dataset {
		return cached, nil
	}

	start := time.Now()
	outcome, err := e.detector.Run(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	result := &Result{
		Dataset: dataset,
		Report:  e.builder.Build(dataset, outcome),
		Scores:  outcome.Scores,
	}

	e.computations.Add(1)
	if e.metrics != nil {
		e.metrics.Computations.Inc()
		e.metrics.ComputeDuration.Observe(time.Since(start).Seconds())
	}

	e.mu.Lock()
	if e.dataset == dataset {
		e.result = result
	}
	e.mu.Unlock()

	e.logger.Info("Report computed",
		zap.Stringer("dataset_id", dataset.ID),
		zap.Int("accounts", result.Report.Summary.TotalAccounts),
		zap.Int("high_risk", result.Report.Summary.HighRiskCount),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Report returns the full cached report
func (e *Engine) Report(ctx context.Context) (domain.Report, error) {
	result, err := e.Compute(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	return result.Report, nil
}

// Scores returns the per-account risk scores in dataset order
func (e *Engine) Scores(ctx context.Context) ([]domain.RiskScore, error) {
	result, err := e.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return result.Scores, nil
}

func (e *Engine) Summary(ctx context.Context) (domain.Summary, error) {
	result, err := e.Compute(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	return result.Report.Summary, nil
}

func (e *Engine) PhoneAnalysis(ctx context.Context) (domain.PhoneAnalysis, error) {
	result, err := e.Compute(ctx)
	if err != nil {
		return domain.PhoneAnalysis{}, err
	}
	return result.Report.PhoneAnalysis, nil
}

func (e *Engine) EmailAnalysis(ctx context.Context) (domain.EmailAnalysis, error) {
	result, err := e.Compute(ctx)
	if err != nil {
		return domain.EmailAnalysis{}, err
	}
	return result.Report.EmailAnalysis, nil
}

func (e *Engine) GeographicAnalysis(ctx context.Context) (domain.GeoAnalysis, error) {
	result, err := e.Compute(ctx)
	if err != nil {
		return domain.GeoAnalysis{}, err
	}
	return result.Report.GeoAnalysis, nil
}

func (e *Engine) HighRiskAccounts(ctx context.Context) ([]domain.HighRiskAccount, error) {
	result, err := e.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return result.Report.HighRisk, nil
}

// Refresh reloads the dataset and computes its report. Failures are
// reported in the result; the engine keeps serving its previous report.
// The dataset id and account count describe the report that was computed,
// which is the newer one if another reload landed in between.
func (e *Engine) Refresh(ctx context.Context) RefreshResult {
	dataset, err := e.Reload(ctx)
	if err != nil {
		return RefreshResult{
			Status:    RefreshError,
			Timestamp: time.Now().UTC(),
			Message:   err.Error(),
		}
	}

	result, err := e.Compute(ctx)
	if err != nil {
		return RefreshResult{
			Status:    RefreshError,
			Timestamp: time.Now().UTC(),
			DatasetID: dataset.ID.String(),
			Accounts:  dataset.Len(),
			Message:   err.Error(),
		}
	}

	return RefreshResult{
		Status:    RefreshSuccess,
		Timestamp: time.Now().UTC(),
		DatasetID: result.Dataset.ID.String(),
		Accounts:  result.Dataset.Len(),
		Message:   "Data refreshed successfully",
	}
}

func (e *Engine) observeReload(status string) {
	if e.metrics != nil {
		e.metrics.Reloads.WithLabelValues(status).Inc()
	}
}
