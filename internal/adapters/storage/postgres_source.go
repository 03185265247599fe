package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/lib/pq"
)

const sourceName = "postgres"

// PostgreSQL error codes surfaced as load failures
const (
	codeUndefinedTable  = "42P01"
	codeUndefinedColumn = "42703"
)

// PostgresSource implements ports.RecordSource for PostgreSQL
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource opens a connection pool and checks it is reachable
func NewPostgresSource(ctx context.Context, connStr string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// The source is read in two queries per reload
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewPostgresSourceFromDB(db), nil
}

// NewPostgresSourceFromDB wraps an existing connection pool
func NewPostgresSourceFromDB(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Close closes the database connection
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

// Name returns the source name
func (s *PostgresSource) Name() string {
	return sourceName
}

// InitSchema creates the input tables if they don't exist
func (s *PostgresSource) InitSchema(ctx context.Context) error {
	schema := `
	-- Account master rows as exported upstream. Dates stay as TEXT: upstream
	-- writes zero months/days and offsets that the loader normalizes.
	CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR(64) PRIMARY KEY,
		created_date TEXT,
		country_code VARCHAR(8) NOT NULL,
		territory VARCHAR(64),
		operator VARCHAR(64),
		phone VARCHAR(32),
		phone_change_date TEXT,
		email VARCHAR(254)
	);

	-- Phone numbering plan: one row per allocated number prefix
	CREATE TABLE IF NOT EXISTS operator_ranges (
		prefix VARCHAR(16) PRIMARY KEY,
		operator VARCHAR(64) NOT NULL,
		territory VARCHAR(64) NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// LoadAccounts reads every account row
func (s *PostgresSource) LoadAccounts(ctx context.Context) ([]domain.AccountRow, error) {
	query := `
		SELECT id, created_date, country_code, territory, operator,
		       phone, phone_change_date, email
		FROM accounts
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, loadError("accounts", err)
	}
	defer rows.Close()

	accounts := make([]domain.AccountRow, 0)
	for rows.Next() {
		var id, countryCode string
		var created, territory, operator, phone, changed, email sql.NullString

		if err := rows.Scan(&id, &created, &countryCode, &territory, &operator, &phone, &changed, &email); err != nil {
			return nil, loadError("accounts", err)
		}

		accounts = append(accounts, domain.AccountRow{
			ID:              id,
			CreatedDate:     created.String,
			CountryCode:     countryCode,
			Territory:       territory.String,
			Operator:        operator.String,
			Phone:           phone.String,
			PhoneChangeDate: changed.String,
			Email:           email.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, loadError("accounts", err)
	}

	return accounts, nil
}

// LoadOperatorRanges reads the numbering reference table
func (s *PostgresSource) LoadOperatorRanges(ctx context.Context) ([]domain.OperatorRange, error) {
	query := `
		SELECT prefix, operator, territory
		FROM operator_ranges
		ORDER BY prefix
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, loadError("operator_ranges", err)
	}
	defer rows.Close()

	ranges := make([]domain.OperatorRange, 0)
	for rows.Next() {
		var r domain.OperatorRange
		if err := rows.Scan(&r.Prefix, &r.Operator, &r.Territory); err != nil {
			return nil, loadError("operator_ranges", err)
		}
		ranges = append(ranges, r)
	}
	if err := rows.Err(); err != nil {
		return nil, loadError("operator_ranges", err)
	}

	return ranges, nil
}

// loadError classifies a query failure on a table as a DataLoadError
func loadError(table string, err error) error {
	source := sourceName + ":" + table

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUndefinedTable:
			return domain.NewDataLoadError(source, "missing table", err)
		case codeUndefinedColumn:
			return domain.NewDataLoadError(source, "missing required column", err)
		}
	}
	return domain.NewDataLoadError(source, "query failed", err)
}
