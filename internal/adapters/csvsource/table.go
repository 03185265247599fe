package csvsource

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/fraudwatch/account-risk/internal/domain"
)

// checkEvery is how many rows are read between context checks
const checkEvery = 1000

// columnAliases maps lower-cased header names to canonical column names.
// Upstream exports use French headers.
var columnAliases = map[string]string{
	"id":                "id",
	"id_ccu":            "id",
	"account_id":        "id",
	"created_date":      "created_date",
	"date_creation":     "created_date",
	"country_code":      "country_code",
	"cogpays":           "country_code",
	"territory":         "territory",
	"territoire":        "territory",
	"operator":          "operator",
	"operateur":         "operator",
	"opérateur":         "operator",
	"mnemo":             "operator",
	"mnémo":             "operator",
	"phone":             "phone",
	"phone_number":      "phone",
	"tel":               "phone",
	"telephone":         "phone",
	"numero":            "phone",
	"phone_change_date": "phone_change_date",
	"date_modf_tel":     "phone_change_date",
	"email":             "email",
	"mail":              "email",
	"e_mail":            "email",
	"prefix":            "prefix",
	"ezabpqm":           "prefix",
}

// table is a parsed delimited file with its header resolved to canonical names
type table struct {
	path    string
	columns map[string]int
	rows    [][]string
}

// readTable reads a whole delimited file. A zero delimiter is sniffed from the header line.
func readTable(ctx context.Context, path string, delimiter rune) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewDataLoadError(path, "cannot open source", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, domain.NewDataLoadError(path, "cannot read header", err)
	}
	header = strings.TrimPrefix(header, "\ufeff")
	if strings.TrimSpace(header) == "" {
		return nil, domain.NewDataLoadError(path, "missing header row", nil)
	}
	if delimiter == 0 {
		delimiter = sniffDelimiter(header)
	}

	reader := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	names, err := reader.Read()
	if err != nil {
		return nil, domain.NewDataLoadError(path, "cannot parse header", err)
	}

	t := &table{path: path, columns: make(map[string]int, len(names))}
	for i, name := range names {
		canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue // unknown columns are tolerated
		}
		if _, seen := t.columns[canonical]; !seen {
			t.columns[canonical] = i
		}
	}

	for {
		if len(t.rows)%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, domain.NewDataLoadError(path, "read aborted", err)
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewDataLoadError(path, "malformed row", err)
		}
		t.rows = append(t.rows, record)
	}

	return t, nil
}

// require fails with a DataLoadError naming the first missing column
func (t *table) require(columns ...string) error {
	for _, column := range columns {
		if _, ok := t.columns[column]; !ok {
			return domain.NewDataLoadError(t.path, "missing required column "+column, nil)
		}
	}
	return nil
}

// get returns the trimmed cell of a column, or "" when the column or cell is absent
func (t *table) get(row []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// sniffDelimiter picks the most frequent of ';', ',' and tab in the header line
func sniffDelimiter(header string) rune {
	best, bestCount := ',', 0
	for _, candidate := range []rune{';', ',', '\t'} {
		if n := strings.Count(header, string(candidate)); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}
