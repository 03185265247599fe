package application

import (
	"context"
	"testing"

	"github.com/fraudwatch/account-risk/internal/config"
	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/fraudwatch/account-risk/internal/domain/detection"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockSource is a testify mock of ports.RecordSource
type mockSource struct {
	mock.Mock
}

func (m *mockSource) Name() string {
	return "mock"
}

func (m *mockSource) LoadAccounts(ctx context.Context) ([]domain.AccountRow, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]domain.AccountRow)
	return rows, args.Error(1)
}

func (m *mockSource) LoadOperatorRanges(ctx context.Context) ([]domain.OperatorRange, error) {
	args := m.Called(ctx)
	ranges, _ := args.Get(0).([]domain.OperatorRange)
	return ranges, args.Error(1)
}

func defaultRules(t *testing.T) detection.Rules {
	t.Helper()
	cfg := config.Default()
	rules, err := cfg.DetectionRules()
	require.NoError(t, err)
	return rules
}

func referenceRanges() []domain.OperatorRange {
	return []domain.OperatorRange{
		{Prefix: "06", Operator: "GENERIC", Territory: "Métropole"},
		{Prefix: "0612", Operator: "ORAN", Territory: "Métropole"},
		{Prefix: "0690", Operator: "DAUP", Territory: "Guadeloupe"},
	}
}
