package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fraudwatch/account-risk/internal/adapters/csvsource"
	"github.com/fraudwatch/account-risk/internal/application"
	"github.com/fraudwatch/account-risk/internal/config"
	"github.com/fraudwatch/account-risk/internal/domain/detection"
	"github.com/fraudwatch/account-risk/internal/domain/reporting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEngine(t *testing.T) *application.Engine {
	t.Helper()
	dir := t.TempDir()
	accounts := filepath.Join(dir, "accounts.csv")
	reference := filepath.Join(dir, "MAJNUM.csv")
	require.NoError(t, os.WriteFile(accounts, []byte(
		"ID_CCU,CREATED_DATE,COGPAYS,Territoire,TEL,DATE_MODF_TEL,EMAIL\n"+
			"A1,2024-01-01,FR,DE,0612345678,,\n"+
			"A2,2024-01-02,FR,,0612345678,2024-01-03,a@yopmail.com\n"), 0o600))
	require.NoError(t, os.WriteFile(reference, []byte("EZABPQM,Mnémo,Territoire\n0612,ORAN,Métropole\n"), 0o600))

	cfg := config.Default()
	rules, err := cfg.DetectionRules()
	require.NoError(t, err)

	logger := zap.NewNop()
	return application.NewEngine(
		application.NewLoader(csvsource.NewSource(accounts, reference, 0), logger, nil, time.Second),
		detection.NewDetector(rules, 2),
		reporting.NewBuilder(reporting.Options{RecentWindow: cfg.Report.RecentWindow}),
		logger,
		nil,
	)
}

func TestWriteSection(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()
	refresh := engine.Refresh(ctx)
	require.Equal(t, application.RefreshSuccess, refresh.Status)

	tests := []struct {
		section string
		key     string
	}{
		{sectionReport, "high_risk_accounts"},
		{sectionSummary, "total_accounts"},
		{sectionPhone, "operator_distribution"},
		{sectionEmail, "timeline"},
		{sectionGeo, "mismatches"},
		{sectionRefresh, "dataset_id"},
	}

	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeSection(ctx, &buf, engine, tt.section, refresh))

			var out map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
			assert.Contains(t, out, tt.key)
		})
	}

	t.Run(sectionHighRisk, func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSection(ctx, &buf, engine, sectionHighRisk, refresh))

		var out []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		require.Len(t, out, 1)
		assert.Equal(t, "A2", out[0]["id"])
	})
}

func TestValidSection(t *testing.T) {
	assert.True(t, validSection("high-risk"))
	assert.False(t, validSection("everything"))
}
