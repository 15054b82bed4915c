package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
)

const lendBorrowColumns = `id, type, person_name, amount_cents, remaining_cents, status,
	due_date, wallet_id, notes, created_at, updated_at`

func scanLendBorrow(row interface{ Scan(...any) error }) (core.LendBorrow, error) {
	var (
		lb        core.LendBorrow
		lbType    string
		status    string
		dueDate   sql.NullString
		walletID  sql.NullInt64
		createdAt string
		updatedAt string
	)
	err := row.Scan(&lb.ID, &lbType, &lb.PersonName, &lb.AmountCents, &lb.RemainingCents,
		&status, &dueDate, &walletID, &lb.Notes, &createdAt, &updatedAt)
	if err != nil {
		return core.LendBorrow{}, err
	}
	lb.Type = core.LendBorrowType(lbType)
	lb.Status = core.LendBorrowStatus(status)
	lb.WalletID = int64Ptr(walletID)
	if lb.DueDate, err = decodeTimePtr(dueDate); err != nil {
		return core.LendBorrow{}, fmt.Errorf("decode due_date: %w", err)
	}
	if lb.CreatedAt, err = decodeTime(createdAt); err != nil {
		return core.LendBorrow{}, fmt.Errorf("decode created_at: %w", err)
	}
	if lb.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return core.LendBorrow{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return lb, nil
}

func (q *Queries) CreateLendBorrow(ctx context.Context, lb core.LendBorrow) (core.LendBorrow, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO lend_borrow (type, person_name, amount_cents, remaining_cents, status,
			due_date, wallet_id, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(lb.Type), lb.PersonName, lb.AmountCents, lb.RemainingCents, string(lb.Status),
		encodeTimePtr(lb.DueDate), nullableInt64(lb.WalletID), lb.Notes,
		encodeTime(now), encodeTime(now))
	if err != nil {
		return core.LendBorrow{}, fmt.Errorf("insert lend/borrow: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.LendBorrow{}, fmt.Errorf("lend/borrow id: %w", err)
	}
	return q.GetLendBorrow(ctx, id)
}

func (q *Queries) GetLendBorrow(ctx context.Context, id int64) (core.LendBorrow, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+lendBorrowColumns+` FROM lend_borrow WHERE id = ?`, id)
	lb, err := scanLendBorrow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LendBorrow{}, fmt.Errorf("lend/borrow %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.LendBorrow{}, fmt.Errorf("get lend/borrow: %w", err)
	}
	return lb, nil
}

// LendBorrowFilter narrows ListLendBorrow; absent fields match everything.
type LendBorrowFilter struct {
	Type   core.LendBorrowType
	Status core.LendBorrowStatus
}

func (q *Queries) ListLendBorrow(ctx context.Context, f LendBorrowFilter) ([]core.LendBorrow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+lendBorrowColumns+` FROM lend_borrow
		WHERE (? = '' OR type = ?)
		  AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC`,
		string(f.Type), string(f.Type), string(f.Status), string(f.Status))
	if err != nil {
		return nil, fmt.Errorf("list lend/borrow: %w", err)
	}
	defer rows.Close()

	var records []core.LendBorrow
	for rows.Next() {
		lb, err := scanLendBorrow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lend/borrow: %w", err)
		}
		records = append(records, lb)
	}
	return records, rows.Err()
}

func (q *Queries) UpdateLendBorrow(ctx context.Context, lb core.LendBorrow) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE lend_borrow SET type = ?, person_name = ?, amount_cents = ?, due_date = ?,
			wallet_id = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		string(lb.Type), lb.PersonName, lb.AmountCents, encodeTimePtr(lb.DueDate),
		nullableInt64(lb.WalletID), lb.Notes, encodeTime(time.Now().UTC()), lb.ID)
	if err != nil {
		return fmt.Errorf("update lend/borrow: %w", err)
	}
	return requireRow(res, "lend/borrow", lb.ID)
}

// SetLendBorrowProgress writes the recomputed remaining amount and status.
func (q *Queries) SetLendBorrowProgress(ctx context.Context, id, remainingCents int64, status core.LendBorrowStatus) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE lend_borrow SET remaining_cents = ?, status = ?, updated_at = ? WHERE id = ?`,
		remainingCents, string(status), encodeTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("set lend/borrow progress: %w", err)
	}
	return requireRow(res, "lend/borrow", id)
}

// DeleteLendBorrow removes the record; the payments cascade in the schema.
func (q *Queries) DeleteLendBorrow(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM lend_borrow WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lend/borrow: %w", err)
	}
	return requireRow(res, "lend/borrow", id)
}

// OverdueLendBorrow lists unsettled records whose due date has passed.
func (q *Queries) OverdueLendBorrow(ctx context.Context, now time.Time) ([]core.LendBorrow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+lendBorrowColumns+` FROM lend_borrow
		WHERE status != 'completed' AND due_date IS NOT NULL AND due_date < ?
		ORDER BY due_date ASC`, encodeTime(now))
	if err != nil {
		return nil, fmt.Errorf("overdue lend/borrow: %w", err)
	}
	defer rows.Close()

	var records []core.LendBorrow
	for rows.Next() {
		lb, err := scanLendBorrow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lend/borrow: %w", err)
		}
		records = append(records, lb)
	}
	return records, rows.Err()
}

// SummarizeDebts aggregates both sides of the debt book in one pass.
func (q *Queries) SummarizeDebts(ctx context.Context) (core.DebtSummary, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT type, COALESCE(SUM(amount_cents), 0), COALESCE(SUM(remaining_cents), 0), COUNT(*)
		FROM lend_borrow GROUP BY type`)
	if err != nil {
		return core.DebtSummary{}, fmt.Errorf("summarize debts: %w", err)
	}
	defer rows.Close()

	var s core.DebtSummary
	for rows.Next() {
		var (
			lbType string
			side   core.DebtSideSummary
		)
		if err := rows.Scan(&lbType, &side.TotalCents, &side.RemainingCents, &side.Count); err != nil {
			return core.DebtSummary{}, fmt.Errorf("scan debt summary: %w", err)
		}
		side.SettledCents = side.TotalCents - side.RemainingCents
		switch core.LendBorrowType(lbType) {
		case core.Lent:
			s.Lent = side
		case core.Borrowed:
			s.Borrowed = side
		}
	}
	if err := rows.Err(); err != nil {
		return core.DebtSummary{}, err
	}
	s.NetCents = s.Lent.RemainingCents - s.Borrowed.RemainingCents
	return s, nil
}

func scanPayment(row interface{ Scan(...any) error }) (core.LendBorrowPayment, error) {
	var (
		p         core.LendBorrowPayment
		txID      sql.NullInt64
		payDate   string
		createdAt string
	)
	err := row.Scan(&p.ID, &p.LendBorrowID, &p.AmountCents, &payDate, &txID, &createdAt)
	if err != nil {
		return core.LendBorrowPayment{}, err
	}
	p.TransactionID = int64Ptr(txID)
	if p.PaymentDate, err = decodeTime(payDate); err != nil {
		return core.LendBorrowPayment{}, fmt.Errorf("decode payment_date: %w", err)
	}
	if p.CreatedAt, err = decodeTime(createdAt); err != nil {
		return core.LendBorrowPayment{}, fmt.Errorf("decode created_at: %w", err)
	}
	return p, nil
}

func (q *Queries) CreatePayment(ctx context.Context, p core.LendBorrowPayment) (core.LendBorrowPayment, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO lend_borrow_payments (lend_borrow_id, amount_cents, payment_date, transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.LendBorrowID, p.AmountCents, encodeTime(p.PaymentDate),
		nullableInt64(p.TransactionID), encodeTime(time.Now().UTC()))
	if err != nil {
		return core.LendBorrowPayment{}, fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.LendBorrowPayment{}, fmt.Errorf("payment id: %w", err)
	}
	return q.GetPayment(ctx, id)
}

func (q *Queries) GetPayment(ctx context.Context, id int64) (core.LendBorrowPayment, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, lend_borrow_id, amount_cents, payment_date, transaction_id, created_at
		FROM lend_borrow_payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LendBorrowPayment{}, fmt.Errorf("payment %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.LendBorrowPayment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (q *Queries) ListPayments(ctx context.Context, lendBorrowID int64) ([]core.LendBorrowPayment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, lend_borrow_id, amount_cents, payment_date, transaction_id, created_at
		FROM lend_borrow_payments WHERE lend_borrow_id = ?
		ORDER BY payment_date ASC, id ASC`, lendBorrowID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.LendBorrowPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (q *Queries) DeletePayment(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM lend_borrow_payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return requireRow(res, "payment", id)
}

// SumPayments totals the payment history of one record. This is the source
// of truth for remaining-amount recomputation.
func (q *Queries) SumPayments(ctx context.Context, lendBorrowID int64) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM lend_borrow_payments WHERE lend_borrow_id = ?`,
		lendBorrowID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

func (q *Queries) UpsertLendBorrow(ctx context.Context, lb core.LendBorrow) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO lend_borrow (id, type, person_name, amount_cents, remaining_cents, status,
			due_date, wallet_id, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type, person_name = excluded.person_name,
			amount_cents = excluded.amount_cents, remaining_cents = excluded.remaining_cents,
			status = excluded.status, due_date = excluded.due_date,
			wallet_id = excluded.wallet_id, notes = excluded.notes,
			updated_at = excluded.updated_at`,
		lb.ID, string(lb.Type), lb.PersonName, lb.AmountCents, lb.RemainingCents,
		string(lb.Status), encodeTimePtr(lb.DueDate), nullableInt64(lb.WalletID), lb.Notes,
		encodeTime(lb.CreatedAt), encodeTime(lb.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert lend/borrow %d: %w", lb.ID, err)
	}
	return nil
}

// ListAllPayments returns the full payment table for backup export.
func (q *Queries) ListAllPayments(ctx context.Context) ([]core.LendBorrowPayment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, lend_borrow_id, amount_cents, payment_date, transaction_id, created_at
		FROM lend_borrow_payments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list all payments: %w", err)
	}
	defer rows.Close()

	var payments []core.LendBorrowPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (q *Queries) UpsertPayment(ctx context.Context, p core.LendBorrowPayment) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO lend_borrow_payments (id, lend_borrow_id, amount_cents, payment_date, transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lend_borrow_id = excluded.lend_borrow_id, amount_cents = excluded.amount_cents,
			payment_date = excluded.payment_date, transaction_id = excluded.transaction_id`,
		p.ID, p.LendBorrowID, p.AmountCents, encodeTime(p.PaymentDate),
		nullableInt64(p.TransactionID), encodeTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert payment %d: %w", p.ID, err)
	}
	return nil
}
