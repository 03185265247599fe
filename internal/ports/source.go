package ports

import (
	"context"

	"github.com/fraudwatch/account-risk/internal/domain"
)

// RecordSource defines the contract for reading the two input tables
//
// Implementations return a *domain.DataLoadError when the source is
// unreadable or lacks a required column, and must honour ctx so that an
// unreachable source fails instead of hanging.
type RecordSource interface {
	// Name identifies the source in logs and errors
	Name() string

	// LoadAccounts reads the account master table
	LoadAccounts(ctx context.Context) ([]domain.AccountRow, error)

	// LoadOperatorRanges reads the phone numbering reference table
	LoadOperatorRanges(ctx context.Context) ([]domain.OperatorRange, error)
}
