package csvsource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSource_LoadAccounts(t *testing.T) {
	accounts := writeFile(t, "accounts.csv",
		"ID_CCU;CREATED_DATE;COGPAYS;TEL;DATE_MODF_TEL;EMAIL;EXTRA\n"+
			"A1;2020-00-15;FR;0612345678;;a@example.com;ignored\n"+
			"A2; 2021-05-01 10:00:00+02:00 ;DE;;2023-01-01;;x\n")

	rows, err := NewSource(accounts, "", 0).LoadAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, domain.AccountRow{
		ID:          "A1",
		CreatedDate: "2020-00-15",
		CountryCode: "FR",
		Phone:       "0612345678",
		Email:       "a@example.com",
	}, rows[0])
	assert.Equal(t, "2021-05-01 10:00:00+02:00", rows[1].CreatedDate)
	assert.Equal(t, "2023-01-01", rows[1].PhoneChangeDate)
}

func TestSource_LoadAccountsCommaAndBOM(t *testing.T) {
	accounts := writeFile(t, "accounts.csv", "\ufeffid,country_code,territory,operator\nB1,FR,FR,ORAN\n")

	rows, err := NewSource(accounts, "", 0).LoadAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "B1", rows[0].ID)
	assert.Equal(t, "ORAN", rows[0].Operator)
	assert.Equal(t, "FR", rows[0].Territory)
}

func TestSource_LoadOperatorRanges(t *testing.T) {
	reference := writeFile(t, "MAJNUM.csv",
		"EZABPQM;Tranche_Debut;Tranche_Fin;Mnémo;Territoire;Date_Attribution\n"+
			"0612;0612000000;0612999999;ORAN;Métropole;01/01/2000\n"+
			"0690;0690000000;0690999999;DAUP;Guadeloupe;01/01/2000\n")

	ranges, err := NewSource("", reference, 0).LoadOperatorRanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.OperatorRange{
		{Prefix: "0612", Operator: "ORAN", Territory: "Métropole"},
		{Prefix: "0690", Operator: "DAUP", Territory: "Guadeloupe"},
	}, ranges)
}

func TestSource_Errors(t *testing.T) {
	missingColumn := writeFile(t, "accounts.csv", "id;territory\nA1;FR\n")
	emptyFile := writeFile(t, "empty.csv", "")
	badReference := writeFile(t, "ref.csv", "prefix;operator\n06;ORAN\n")

	tests := []struct {
		name   string
		load   func() error
		reason string
	}{
		{
			name: "Missing file",
			load: func() error {
				_, err := NewSource(filepath.Join(t.TempDir(), "nope.csv"), "", 0).LoadAccounts(context.Background())
				return err
			},
			reason: "cannot open source",
		},
		{
			name: "Missing required account column",
			load: func() error {
				_, err := NewSource(missingColumn, "", 0).LoadAccounts(context.Background())
				return err
			},
			reason: "missing required column country_code",
		},
		{
			name: "Empty file",
			load: func() error {
				_, err := NewSource(emptyFile, "", 0).LoadAccounts(context.Background())
				return err
			},
			reason: "missing header row",
		},
		{
			name: "Missing required reference column",
			load: func() error {
				_, err := NewSource("", badReference, 0).LoadOperatorRanges(context.Background())
				return err
			},
			reason: "missing required column territory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.load()
			require.Error(t, err)

			var loadErr *domain.DataLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.reason, loadErr.Reason)
		})
	}
}

func TestSource_Cancelled(t *testing.T) {
	accounts := writeFile(t, "accounts.csv", "id;country_code\nA1;FR\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource(accounts, "", 0).LoadAccounts(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter("a;b;c\n"))
	assert.Equal(t, ',', sniffDelimiter("a,b,c\n"))
	assert.Equal(t, '\t', sniffDelimiter("a\tb\n"))
	assert.Equal(t, ',', sniffDelimiter("single\n"))
}
