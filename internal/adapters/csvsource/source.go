package csvsource

import (
	"context"

	"github.com/fraudwatch/account-risk/internal/domain"
)

// Source implements ports.RecordSource over two delimited text files
type Source struct {
	accountsPath  string
	referencePath string
	delimiter     rune
}

// NewSource creates a CSV source. A zero delimiter is detected per file.
func NewSource(accountsPath, referencePath string, delimiter rune) *Source {
	return &Source{
		accountsPath:  accountsPath,
		referencePath: referencePath,
		delimiter:     delimiter,
	}
}

// Name returns the source name
func (s *Source) Name() string {
	return "csv"
}

// LoadAccounts reads the account master file. id and country_code are required.
// territory is optional here: it normally comes from the numbering reference,
// whose LoadOperatorRanges requires it, and the account value is only a fallback.
func (s *Source) LoadAccounts(ctx context.Context) ([]domain.AccountRow, error) {
	t, err := readTable(ctx, s.accountsPath, s.delimiter)
	if err != nil {
		return nil, err
	}
	if err := t.require("id", "country_code"); err != nil {
		return nil, err
	}

	rows := make([]domain.AccountRow, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, domain.AccountRow{
			ID:              t.get(r, "id"),
			CreatedDate:     t.get(r, "created_date"),
			CountryCode:     t.get(r, "country_code"),
			Territory:       t.get(r, "territory"),
			Operator:        t.get(r, "operator"),
			Phone:           t.get(r, "phone"),
			PhoneChangeDate: t.get(r, "phone_change_date"),
			Email:           t.get(r, "email"),
		})
	}
	return rows, nil
}

// LoadOperatorRanges reads the numbering reference file
func (s *Source) LoadOperatorRanges(ctx context.Context) ([]domain.OperatorRange, error) {
	t, err := readTable(ctx, s.referencePath, s.delimiter)
	if err != nil {
		return nil, err
	}
	if err := t.require("prefix", "operator", "territory"); err != nil {
		return nil, err
	}

	ranges := make([]domain.OperatorRange, 0, len(t.rows))
	for _, r := range t.rows {
		ranges = append(ranges, domain.OperatorRange{
			Prefix:    t.get(r, "prefix"),
			Operator:  t.get(r, "operator"),
			Territory: t.get(r, "territory"),
		})
	}
	return ranges, nil
}
