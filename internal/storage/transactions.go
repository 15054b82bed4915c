package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
)

// Sync states for the optional export pipeline.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// TransactionFilter is an explicit query specification: every field that is
// present participates in a fixed filter chain, absent fields match all rows.
type TransactionFilter struct {
	WalletID   *int64
	Type       core.TransactionType
	CategoryID *int64
	Start      *time.Time
	End        *time.Time
	Limit      int
}

// DateRange holds optional inclusive bounds for aggregate queries.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r DateRange) bounds() (string, string) {
	start, end := "", ""
	if r.Start != nil {
		start = encodeTime(*r.Start)
	}
	if r.End != nil {
		end = encodeTime(*r.End)
	}
	return start, end
}

const transactionColumns = `id, wallet_id, type, amount_cents, category_id, description,
	notes, to_wallet_id, transfer_fee_cents, transaction_date, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t          core.Transaction
		txType     string
		categoryID sql.NullInt64
		toWalletID sql.NullInt64
		txDate     string
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&t.ID, &t.WalletID, &txType, &t.AmountCents, &categoryID,
		&t.Description, &t.Notes, &toWalletID, &t.TransferFee, &txDate, &createdAt, &updatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(txType)
	t.CategoryID = int64Ptr(categoryID)
	t.ToWalletID = int64Ptr(toWalletID)
	if t.TransactionDate, err = decodeTime(txDate); err != nil {
		return core.Transaction{}, fmt.Errorf("decode transaction_date: %w", err)
	}
	if t.CreatedAt, err = decodeTime(createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("decode created_at: %w", err)
	}
	if t.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return t, nil
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions (wallet_id, type, amount_cents, category_id, description,
			notes, to_wallet_id, transfer_fee_cents, transaction_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.WalletID, string(t.Type), t.AmountCents, nullableInt64(t.CategoryID), t.Description,
		t.Notes, nullableInt64(t.ToWalletID), t.TransferFee, encodeTime(t.TransactionDate),
		encodeTime(now), encodeTime(now))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	return q.GetTransaction(ctx, id)
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction replaces the mutable fields of a transaction and bumps
// its export version so a pending sync picks up the new state.
func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE transactions SET wallet_id = ?, type = ?, amount_cents = ?, category_id = ?,
			description = ?, notes = ?, to_wallet_id = ?, transfer_fee_cents = ?,
			transaction_date = ?, sync_status = ?, version = version + 1, updated_at = ?
		WHERE id = ?`,
		t.WalletID, string(t.Type), t.AmountCents, nullableInt64(t.CategoryID),
		t.Description, t.Notes, nullableInt64(t.ToWalletID), t.TransferFee,
		encodeTime(t.TransactionDate), SyncPending, encodeTime(time.Now().UTC()), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, "transaction", t.ID)
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "transaction", id)
}

// DeleteTransactionsByWallet removes every transaction referencing the wallet
// as source or destination. Used by the ordered wallet cascade.
func (q *Queries) DeleteTransactionsByWallet(ctx context.Context, walletID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM transactions WHERE wallet_id = ? OR to_wallet_id = ?`, walletID, walletID)
	if err != nil {
		return 0, fmt.Errorf("delete wallet transactions: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	start, end := DateRange{Start: f.Start, End: f.End}.bounds()
	limit := f.Limit
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE (? IS NULL OR wallet_id = ? OR to_wallet_id = ?)
		  AND (? = '' OR type = ?)
		  AND (? IS NULL OR category_id = ?)
		  AND (? = '' OR transaction_date >= ?)
		  AND (? = '' OR transaction_date <= ?)
		ORDER BY transaction_date DESC, id DESC
		LIMIT ?`,
		nullableInt64(f.WalletID), nullableInt64(f.WalletID), nullableInt64(f.WalletID),
		string(f.Type), string(f.Type),
		nullableInt64(f.CategoryID), nullableInt64(f.CategoryID),
		start, start, end, end, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// SummarizeTransactions aggregates income, expense, net, and count over an
// optional inclusive date range.
func (q *Queries) SummarizeTransactions(ctx context.Context, r DateRange) (core.TransactionSummary, error) {
	start, end := r.bounds()
	var s core.TransactionSummary
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0),
			COUNT(*)
		FROM transactions
		WHERE (? = '' OR transaction_date >= ?)
		  AND (? = '' OR transaction_date <= ?)`,
		start, start, end, end).Scan(&s.IncomeCents, &s.ExpenseCents, &s.Count)
	if err != nil {
		return core.TransactionSummary{}, fmt.Errorf("summarize transactions: %w", err)
	}
	s.NetCents = s.IncomeCents - s.ExpenseCents
	return s, nil
}

// TotalsByCategory groups transactions of one type by category over an
// optional inclusive date range. Uncategorized rows group under a nil id.
func (q *Queries) TotalsByCategory(ctx context.Context, txType core.TransactionType, r DateRange) ([]core.CategoryTotal, error) {
	start, end := r.bounds()
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.category_id, COALESCE(c.name, 'Uncategorized'), SUM(t.amount_cents), COUNT(*)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.type = ?
		  AND (? = '' OR t.transaction_date >= ?)
		  AND (? = '' OR t.transaction_date <= ?)
		GROUP BY t.category_id, c.name
		ORDER BY SUM(t.amount_cents) DESC`,
		string(txType), start, start, end, end)
	if err != nil {
		return nil, fmt.Errorf("totals by category: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var (
			ct    core.CategoryTotal
			catID sql.NullInt64
		)
		if err := rows.Scan(&catID, &ct.CategoryName, &ct.TotalCents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ct.CategoryID = int64Ptr(catID)
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// SumCategoryExpenses totals expense transactions for one category in a range.
func (q *Queries) SumCategoryExpenses(ctx context.Context, categoryID int64, r DateRange) (int64, error) {
	start, end := r.bounds()
	var total int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE type = 'expense' AND category_id = ?
		  AND (? = '' OR transaction_date >= ?)
		  AND (? = '' OR transaction_date <= ?)`,
		categoryID, start, start, end, end).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum category expenses: %w", err)
	}
	return total, nil
}

// SearchTransactions matches the term case-insensitively against description
// or notes, newest first.
func (q *Queries) SearchTransactions(ctx context.Context, term string, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + term + "%"
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE description LIKE ? COLLATE NOCASE OR notes LIKE ? COLLATE NOCASE
		ORDER BY transaction_date DESC, id DESC
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// PendingSyncTransaction carries the minimum needed to enqueue an export.
type PendingSyncTransaction struct {
	ID      int64
	Version int64
}

func (q *Queries) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, version FROM transactions WHERE sync_status = ? ORDER BY id LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// TransactionVersion reads the current export version of a row.
func (q *Queries) TransactionVersion(ctx context.Context, id int64) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, `SELECT version FROM transactions WHERE id = ?`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("transaction version: %w", err)
	}
	return version, nil
}

// TransactionSyncStatus reads the export state of a row.
func (q *Queries) TransactionSyncStatus(ctx context.Context, id int64) (string, error) {
	var status string
	err := q.db.QueryRowContext(ctx, `SELECT sync_status FROM transactions WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("transaction sync status: %w", err)
	}
	return status, nil
}

func (q *Queries) MarkTransactionSynced(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `UPDATE transactions SET sync_status = ? WHERE id = ?`, SyncSynced, id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return requireRow(res, "transaction", id)
}

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `UPDATE transactions SET sync_status = ? WHERE id = ?`, SyncError, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	return requireRow(res, "transaction", id)
}

func (q *Queries) UpsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions (id, wallet_id, type, amount_cents, category_id, description,
			notes, to_wallet_id, transfer_fee_cents, transaction_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			wallet_id = excluded.wallet_id, type = excluded.type,
			amount_cents = excluded.amount_cents, category_id = excluded.category_id,
			description = excluded.description, notes = excluded.notes,
			to_wallet_id = excluded.to_wallet_id, transfer_fee_cents = excluded.transfer_fee_cents,
			transaction_date = excluded.transaction_date, updated_at = excluded.updated_at`,
		t.ID, t.WalletID, string(t.Type), t.AmountCents, nullableInt64(t.CategoryID),
		t.Description, t.Notes, nullableInt64(t.ToWalletID), t.TransferFee,
		encodeTime(t.TransactionDate), encodeTime(t.CreatedAt), encodeTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert transaction %d: %w", t.ID, err)
	}
	return nil
}
