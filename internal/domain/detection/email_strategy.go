package detection

import (
	"strings"

	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/shopspring/decimal"
)

// EmailStrategy flags disposable, malformed, lookalike and blacklisted email addresses
//
// An absent email is not suspicious by itself and never produces a finding.
type EmailStrategy struct{}

// NewEmailStrategy creates a new email anomaly detection strategy
func NewEmailStrategy() *EmailStrategy {
	return &EmailStrategy{}
}

// Name returns the strategy name
func (s *EmailStrategy) Name() string {
	return "Suspicious Email"
}

// Category returns the email category
func (s *EmailStrategy) Category() domain.Category {
	return domain.CategoryEmail
}

// Detect matches the account email against the configured suspicious patterns
func (s *EmailStrategy) Detect(record domain.AccountRecord, context *DetectionContext) []domain.Finding {
	email := strings.TrimSpace(record.Email)
	if domain.IsAbsent(email) {
		return nil
	}

	rules := context.Rules.Email
	var findings []domain.Finding
	add := func(reason string, weight decimal.Decimal) {
		findings = append(findings, domain.Finding{
			AccountID: record.ID,
			Category:  domain.CategoryEmail,
			Weight:    weight,
			Reason:    reason,
		})
	}

	if !ValidateEmail(email) {
		add(ReasonMalformedEmail, rules.MalformedWeight)
	}

	if emailDomain := extractDomain(email); emailDomain != "" {
		if matchesDomain(emailDomain, rules.DisposableDomains) {
			add(ReasonDisposableDomain, rules.DisposableWeight)
		} else if _, ok := lookalikeOf(emailDomain, rules.TrustedDomains); ok {
			add(ReasonLookalikeDomain, rules.LookalikeWeight)
		}
	}

	lowered := strings.ToLower(email)
	for _, pattern := range rules.BlacklistPatterns {
		if pattern.MatchString(lowered) {
			add(ReasonBlacklistedPattern, rules.BlacklistedWeight)
			break
		}
	}

	return findings
}

// Summarize builds the email section of the report.
// scores[i] must belong to records[i].
func (s *EmailStrategy) Summarize(records []domain.AccountRecord, scores []domain.RiskScore, context *DetectionContext) domain.EmailAnalysis {
	windows := context.Rules.Email.Timeline
	analysis := domain.EmailAnalysis{
		Patterns:          make(map[string]int),
		SuspiciousDomains: make(map[string]int),
		Timeline:          make([]domain.TimelineBucket, len(windows)),
	}
	for i, w := range windows {
		analysis.Timeline[i] = domain.TimelineBucket{Label: w.Label, Window: w.Window.String()}
	}

	for i, record := range records {
		findings := findingsOf(scores[i], domain.CategoryEmail)
		if len(findings) == 0 {
			continue
		}

		analysis.AccountsFlagged++
		for _, f := range findings {
			analysis.Patterns[f.Reason]++
		}
		if emailDomain := extractDomain(strings.TrimSpace(record.Email)); emailDomain != "" {
			analysis.SuspiciousDomains[emailDomain]++
		}
		for j, w := range windows {
			if record.CreatedDate.Within(context.AsOf, w.Window) {
				analysis.Timeline[j].Count++
			}
		}
	}

	return analysis
}
