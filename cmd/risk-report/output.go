package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/fraudwatch/account-risk/internal/application"
)

const (
	sectionReport   = "report"
	sectionSummary  = "summary"
	sectionPhone    = "phone"
	sectionEmail    = "email"
	sectionGeo      = "geo"
	sectionHighRisk = "high-risk"
	sectionRefresh  = "refresh"
)

var sections = []string{
	sectionReport, sectionSummary, sectionPhone, sectionEmail, sectionGeo, sectionHighRisk, sectionRefresh,
}

func sectionNames() string {
	return strings.Join(sections, ", ")
}

func validSection(name string) bool {
	for _, s := range sections {
		if s == name {
			return true
		}
	}
	return false
}

// writeSection prints one section of the engine's report as indented JSON
func writeSection(ctx context.Context, w io.Writer, engine *application.Engine, section string, refresh application.RefreshResult) error {
	var (
		value any
		err   error
	)

	switch section {
	case sectionSummary:
		value, err = engine.Summary(ctx)
	case sectionPhone:
		value, err = engine.PhoneAnalysis(ctx)
	case sectionEmail:
		value, err = engine.EmailAnalysis(ctx)
	case sectionGeo:
		value, err = engine.GeographicAnalysis(ctx)
	case sectionHighRisk:
		value, err = engine.HighRiskAccounts(ctx)
	case sectionRefresh:
		value = refresh
	default:
		value, err = engine.Report(ctx)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
