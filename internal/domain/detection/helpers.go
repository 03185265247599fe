package detection

import (
	"regexp"
	"strings"

	"github.com/fraudwatch/account-risk/internal/domain"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// extractDomain extracts the domain from an email address
func extractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "" // Malformed email address
	}
	return strings.ToLower(parts[1])
}

// ValidateEmail performs basic email format validation
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// matchesDomain checks if domain equals one of the listed domains or is a subdomain of it
func matchesDomain(domain string, domains []string) bool {
	for _, candidate := range domains {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if domain == candidate || strings.HasSuffix(domain, "."+candidate) {
			return true
		}
	}
	return false
}

// isUnknownOperator checks if an operator value carries no usable information
func isUnknownOperator(operator string) bool {
	operator = strings.TrimSpace(operator)
	return operator == "" || strings.EqualFold(operator, domain.UnknownOperator)
}

// labelOrUnknown returns the value, or "Unknown" when it is blank
func labelOrUnknown(value string) string {
	if value = strings.TrimSpace(value); value == "" {
		return domain.UnknownOperator
	}
	return value
}

// findingsOf returns the findings of a score that belong to one category
func findingsOf(score domain.RiskScore, category domain.Category) []domain.Finding {
	var out []domain.Finding
	for _, f := range score.Findings {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// matrix[i][j] = distance between s1[0:i] and s2[0:j]
	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
	}
	for i := 0; i <= len(s1); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // Deletion
				matrix[i][j-1]+1,      // Insertion
				matrix[i-1][j-1]+cost, // Substitution
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}

// lookalikeOf returns the trusted domain that domain imitates, if any.
// A trusted domain is never a lookalike; otherwise a lookalike is more than
// 85% similar to a trusted domain.
func lookalikeOf(domain string, trusted []string) (string, bool) {
	candidates := make([]string, 0, len(trusted))
	for _, candidate := range trusted {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if domain == candidate {
			return "", false
		}
		candidates = append(candidates, candidate)
	}

	for _, candidate := range candidates {
		distance := levenshteinDistance(domain, candidate)
		maxLen := float64(max(len(domain), len(candidate)))
		similarity := (1.0 - float64(distance)/maxLen) * 100

		if similarity > 85 && similarity < 100 {
			return candidate, true
		}
	}
	return "", false
}
