package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/fraudwatch/account-risk/internal/metrics"
	"github.com/fraudwatch/account-risk/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Loader reads both input tables from a record source and joins them into a Dataset
//
// Per-record problems (unparseable dates, empty or duplicate ids) are
// recovered from and counted; only a failing source aborts a load.
type Loader struct {
	source  ports.RecordSource
	logger  *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time
}

// NewLoader creates a loader. A zero timeout disables the load deadline.
func NewLoader(source ports.RecordSource, logger *zap.Logger, m *metrics.Metrics, timeout time.Duration) *Loader {
	return &Loader{
		source:  source,
		logger:  logger.With(zap.String("component", "loader"), zap.String("source", source.Name())),
		metrics: m,
		timeout: timeout,
		now:     time.Now,
	}
}

// Load reads the source and returns a new, fully built dataset.
// On error nothing is returned, so callers keep whatever they had.
func (l *Loader) Load(ctx context.Context) (*domain.Dataset, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	var (
		rows   []domain.AccountRow
		ranges []domain.OperatorRange
	)

	// Both tables are independent; read them side by side
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = l.source.LoadAccounts(gctx)
		return l.wrap("accounts", err)
	})
	g.Go(func() error {
		var err error
		ranges, err = l.source.LoadOperatorRanges(gctx)
		return l.wrap("operator ranges", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dataset := &domain.Dataset{
		ID:       uuid.New(),
		LoadedAt: l.now().UTC(),
		Records:  make([]domain.AccountRecord, 0, len(rows)),
	}

	index := newOperatorIndex(ranges)
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		id := strings.TrimSpace(row.ID)
		if domain.IsAbsent(id) {
			dataset.Skipped++
			continue
		}
		if _, dup := seen[id]; dup {
			l.logger.Debug("Skipping duplicate account", zap.String("account_id", id))
			dataset.Skipped++
			continue
		}
		seen[id] = struct{}{}

		record := domain.AccountRecord{
			ID:          id,
			CountryCode: cell(row.CountryCode),
			Territory:   cell(row.Territory),
			Email:       cell(row.Email),
		}
		record.CreatedDate = l.date(dataset, id, "created_date", row.CreatedDate)
		record.PhoneChangeDate = l.date(dataset, id, "phone_change_date", row.PhoneChangeDate)
		record.Operator, record.Territory = index.resolve(row, record.Territory)

		dataset.Records = append(dataset.Records, record)
	}

	if dataset.Skipped > 0 {
		l.logger.Warn("Skipped account rows without a usable id",
			zap.Int("skipped", dataset.Skipped),
		)
	}

	return dataset, nil
}

// date normalizes one date cell. A bad value is logged and counted, and the field becomes absent.
func (l *Loader) date(dataset *domain.Dataset, accountID, field, raw string) domain.Timestamp {
	ts, err := domain.NormalizeDate(raw)
	if err == nil {
		return ts
	}

	var dateErr *domain.DateFormatError
	if errors.As(err, &dateErr) {
		l.logger.Warn("Discarding invalid date",
			zap.String("account_id", accountID),
			zap.String("field", field),
			zap.String("value", dateErr.Input),
			zap.String("reason", dateErr.Reason),
		)
	}
	dataset.DateErrors++
	if l.metrics != nil {
		l.metrics.DateParseFailures.Inc()
	}
	return domain.Timestamp{}
}

func (l *Loader) wrap(table string, err error) error {
	if err == nil {
		return nil
	}
	var loadErr *domain.DataLoadError
	if errors.As(err, &loadErr) {
		return err
	}
	return domain.NewDataLoadError(l.source.Name()+":"+table, "read failed", err)
}

func cell(value string) string {
	value = strings.TrimSpace(value)
	if domain.IsAbsent(value) {
		return ""
	}
	return value
}

// operatorIndex joins accounts to the numbering reference
type operatorIndex struct {
	byPrefix   map[string]domain.OperatorRange
	byOperator map[string]domain.OperatorRange
	maxLen     int
}

func newOperatorIndex(ranges []domain.OperatorRange) *operatorIndex {
	idx := &operatorIndex{
		byPrefix:   make(map[string]domain.OperatorRange, len(ranges)),
		byOperator: make(map[string]domain.OperatorRange),
	}
	for _, r := range ranges {
		r = domain.OperatorRange{
			Prefix:    nationalNumber(r.Prefix),
			Operator:  cell(r.Operator),
			Territory: cell(r.Territory),
		}
		if r.Prefix != "" {
			if _, exists := idx.byPrefix[r.Prefix]; !exists {
				idx.byPrefix[r.Prefix] = r
				idx.maxLen = max(idx.maxLen, len(r.Prefix))
			}
		}
		if key := strings.ToUpper(r.Operator); key != "" {
			if _, exists := idx.byOperator[key]; !exists {
				idx.byOperator[key] = r
			}
		}
	}
	return idx
}

// lookup finds the reference row with the longest prefix of number
func (idx *operatorIndex) lookup(number string) (domain.OperatorRange, bool) {
	for n := min(len(number), idx.maxLen); n > 0; n-- {
		if r, ok := idx.byPrefix[number[:n]]; ok {
			return r, true
		}
	}
	return domain.OperatorRange{}, false
}

// resolve returns the operator and territory of an account row.
// A phone prefix match wins, then the row's own operator code; the
// operator falls back to Unknown and the territory to the row's value.
func (idx *operatorIndex) resolve(row domain.AccountRow, territory string) (string, string) {
	if number := nationalNumber(row.Phone); number != "" {
		if r, ok := idx.lookup(number); ok {
			return pick(r.Operator, cell(row.Operator), domain.UnknownOperator), pick(r.Territory, territory)
		}
	}

	operator := cell(row.Operator)
	if operator == "" {
		return domain.UnknownOperator, territory
	}
	if r, ok := idx.byOperator[strings.ToUpper(operator)]; ok {
		return operator, pick(territory, r.Territory)
	}
	return operator, territory
}

// nationalNumber reduces a phone number or prefix to its digits in national (leading 0) form
func nationalNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	if domain.IsAbsent(raw) {
		return ""
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "0033"):
		digits = "0" + digits[4:]
	case strings.HasPrefix(raw, "+33"):
		digits = "0" + digits[2:]
	}
	if !strings.HasPrefix(digits, "0") {
		digits = "0" + digits
	}
	return digits
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
