package database

import (
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// NewMockPool creates a pgxmock pool that satisfies DBTX and TxBeginner.
// Callers should check ExpectationsWereMet at the end of each test.
func NewMockPool() (pgxmock.PgxPoolIface, error) {
	return pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
}

var (
	_ DBTX       = (pgxmock.PgxPoolIface)(nil)
	_ TxBeginner = (pgxmock.PgxPoolIface)(nil)
)
