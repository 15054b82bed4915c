package sheets

import (
	"context"
	"time"
)

// Row is one exported ledger entry. Wallet and Category carry display
// names so the sheet stays readable without joins.
type Row struct {
	Date        time.Time
	Type        string
	Description string
	AmountCents int64
	Wallet      string
	Category    string
	Notes       string
}

// TransactionAppender is the outbound port for sheet export.
type TransactionAppender interface {
	Append(ctx context.Context, row Row) (rowRef string, err error)
}
