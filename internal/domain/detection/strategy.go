package detection

import (
	"time"

	"github.com/fraudwatch/account-risk/internal/domain"
)

// DetectionStrategy defines the interface that all account anomaly detectors must implement
//
// Each detector inspects one account at a time and never looks at other
// accounts, so detectors can run in any order and in parallel.
type DetectionStrategy interface {
	// Detect analyzes an account and returns its findings, or nil when nothing is suspicious
	Detect(record domain.AccountRecord, context *DetectionContext) []domain.Finding

	// Name returns the human-readable name of this detection strategy
	Name() string

	// Category returns the risk category the strategy contributes to
	Category() domain.Category
}

// DetectionContext provides the configuration and reference time shared by all strategies
type DetectionContext struct {
	Rules *Rules

	// AsOf is the reference time for recency windows, normally the dataset load time
	AsOf time.Time
}

// NewDetectionContext creates a new detection context with the provided configuration
func NewDetectionContext(rules *Rules, asOf time.Time) *DetectionContext {
	return &DetectionContext{
		Rules: rules,
		AsOf:  asOf,
	}
}
