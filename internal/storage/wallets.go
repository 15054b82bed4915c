package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
)

const walletColumns = `id, name, type, balance_cents, currency, credit_limit_cents,
	billing_day, due_day, cashback_rate, is_active, created_at, updated_at`

func scanWallet(row interface{ Scan(...any) error }) (core.Wallet, error) {
	var (
		w           core.Wallet
		walletType  string
		creditLimit sql.NullInt64
		billingDay  sql.NullInt64
		dueDay      sql.NullInt64
		cashback    sql.NullFloat64
		createdAt   string
		updatedAt   string
	)
	err := row.Scan(&w.ID, &w.Name, &walletType, &w.BalanceCents, &w.Currency,
		&creditLimit, &billingDay, &dueDay, &cashback, &w.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return core.Wallet{}, err
	}
	w.Type = core.WalletType(walletType)
	w.CreditLimitCents = int64Ptr(creditLimit)
	w.BillingDay = intPtr(billingDay)
	w.DueDay = intPtr(dueDay)
	w.CashbackRate = floatPtr(cashback)
	if w.CreatedAt, err = decodeTime(createdAt); err != nil {
		return core.Wallet{}, fmt.Errorf("decode created_at: %w", err)
	}
	if w.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return core.Wallet{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return w, nil
}

func (q *Queries) CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO wallets (name, type, balance_cents, currency, credit_limit_cents,
			billing_day, due_day, cashback_rate, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.Name, string(w.Type), w.BalanceCents, w.Currency,
		nullableInt64(w.CreditLimitCents), nullableInt(w.BillingDay), nullableInt(w.DueDay),
		nullableFloat(w.CashbackRate), w.IsActive, encodeTime(now), encodeTime(now))
	if err != nil {
		return core.Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Wallet{}, fmt.Errorf("wallet id: %w", err)
	}
	return q.GetWallet(ctx, id)
}

func (q *Queries) GetWallet(ctx context.Context, id int64) (core.Wallet, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ?`, id)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Wallet{}, fmt.Errorf("wallet %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// ListWallets returns all wallets, inactive ones included only on request.
func (q *Queries) ListWallets(ctx context.Context, includeInactive bool) ([]core.Wallet, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+walletColumns+` FROM wallets
		WHERE (? OR is_active = 1)
		ORDER BY id`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []core.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (q *Queries) UpdateWallet(ctx context.Context, w core.Wallet) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE wallets SET name = ?, type = ?, currency = ?, credit_limit_cents = ?,
			billing_day = ?, due_day = ?, cashback_rate = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		w.Name, string(w.Type), w.Currency, nullableInt64(w.CreditLimitCents),
		nullableInt(w.BillingDay), nullableInt(w.DueDay), nullableFloat(w.CashbackRate),
		w.IsActive, encodeTime(time.Now().UTC()), w.ID)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	return requireRow(res, "wallet", w.ID)
}

// AdjustWalletBalance adds deltaCents to the wallet balance. This is the only
// statement that writes balance_cents outside of import.
func (q *Queries) AdjustWalletBalance(ctx context.Context, id, deltaCents int64) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE wallets SET balance_cents = balance_cents + ?, updated_at = ? WHERE id = ?`,
		deltaCents, encodeTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("adjust wallet balance: %w", err)
	}
	return requireRow(res, "wallet", id)
}

// DetachWalletReferences nulls the optional wallet links held by debts and
// bill reminders. Part of the ordered wallet cascade.
func (q *Queries) DetachWalletReferences(ctx context.Context, walletID int64) error {
	if _, err := q.db.ExecContext(ctx, `
		UPDATE lend_borrow SET wallet_id = NULL WHERE wallet_id = ?`, walletID); err != nil {
		return fmt.Errorf("detach lend/borrow wallet refs: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `
		UPDATE bill_reminders SET wallet_id = NULL WHERE wallet_id = ?`, walletID); err != nil {
		return fmt.Errorf("detach bill reminder wallet refs: %w", err)
	}
	return nil
}

func (q *Queries) DeleteWallet(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	return requireRow(res, "wallet", id)
}

// SumActiveBalances totals the balances of active wallets.
func (q *Queries) SumActiveBalances(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance_cents), 0) FROM wallets WHERE is_active = 1`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum balances: %w", err)
	}
	return total, nil
}

// SumCreditCardDebt totals outstanding credit-card debt as a positive number.
func (q *Queries) SumCreditCardDebt(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(-balance_cents), 0) FROM wallets
		WHERE type = 'credit_card' AND balance_cents < 0 AND is_active = 1`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum credit card debt: %w", err)
	}
	return total, nil
}

// UpsertWallet writes a full wallet row keyed by id. Used by backup import.
func (q *Queries) UpsertWallet(ctx context.Context, w core.Wallet) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO wallets (id, name, type, balance_cents, currency, credit_limit_cents,
			billing_day, due_day, cashback_rate, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, type = excluded.type, balance_cents = excluded.balance_cents,
			currency = excluded.currency, credit_limit_cents = excluded.credit_limit_cents,
			billing_day = excluded.billing_day, due_day = excluded.due_day,
			cashback_rate = excluded.cashback_rate, is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		w.ID, w.Name, string(w.Type), w.BalanceCents, w.Currency,
		nullableInt64(w.CreditLimitCents), nullableInt(w.BillingDay), nullableInt(w.DueDay),
		nullableFloat(w.CashbackRate), w.IsActive, encodeTime(w.CreatedAt), encodeTime(w.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert wallet %d: %w", w.ID, err)
	}
	return nil
}

// requireRow converts a zero-row UPDATE/DELETE into ErrNotFound.
func requireRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, core.ErrNotFound)
	}
	return nil
}
