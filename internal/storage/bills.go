package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
)

const billColumns = `id, title, amount_cents, category_id, wallet_id, due_date, reminder_date,
	is_recurring, frequency, is_paid, transaction_id, created_at, updated_at`

func scanBill(row interface{ Scan(...any) error }) (core.BillReminder, error) {
	var (
		b            core.BillReminder
		amount       sql.NullInt64
		categoryID   sql.NullInt64
		walletID     sql.NullInt64
		dueDate      string
		reminderDate sql.NullString
		frequency    sql.NullString
		txID         sql.NullInt64
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(&b.ID, &b.Title, &amount, &categoryID, &walletID, &dueDate, &reminderDate,
		&b.IsRecurring, &frequency, &b.IsPaid, &txID, &createdAt, &updatedAt)
	if err != nil {
		return core.BillReminder{}, err
	}
	b.AmountCents = int64Ptr(amount)
	b.CategoryID = int64Ptr(categoryID)
	b.WalletID = int64Ptr(walletID)
	b.TransactionID = int64Ptr(txID)
	if frequency.Valid {
		f := core.BillFrequency(frequency.String)
		b.Frequency = &f
	}
	if b.DueDate, err = decodeTime(dueDate); err != nil {
		return core.BillReminder{}, fmt.Errorf("decode due_date: %w", err)
	}
	if b.ReminderDate, err = decodeTimePtr(reminderDate); err != nil {
		return core.BillReminder{}, fmt.Errorf("decode reminder_date: %w", err)
	}
	if b.CreatedAt, err = decodeTime(createdAt); err != nil {
		return core.BillReminder{}, fmt.Errorf("decode created_at: %w", err)
	}
	if b.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return core.BillReminder{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return b, nil
}

func nullableFrequency(f *core.BillFrequency) any {
	if f == nil {
		return nil
	}
	return string(*f)
}

func (q *Queries) CreateBillReminder(ctx context.Context, b core.BillReminder) (core.BillReminder, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO bill_reminders (title, amount_cents, category_id, wallet_id, due_date,
			reminder_date, is_recurring, frequency, is_paid, transaction_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Title, nullableInt64(b.AmountCents), nullableInt64(b.CategoryID), nullableInt64(b.WalletID),
		encodeTime(b.DueDate), encodeTimePtr(b.ReminderDate), b.IsRecurring,
		nullableFrequency(b.Frequency), b.IsPaid, nullableInt64(b.TransactionID),
		encodeTime(now), encodeTime(now))
	if err != nil {
		return core.BillReminder{}, fmt.Errorf("insert bill reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.BillReminder{}, fmt.Errorf("bill reminder id: %w", err)
	}
	return q.GetBillReminder(ctx, id)
}

func (q *Queries) GetBillReminder(ctx context.Context, id int64) (core.BillReminder, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bill_reminders WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BillReminder{}, fmt.Errorf("bill reminder %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.BillReminder{}, fmt.Errorf("get bill reminder: %w", err)
	}
	return b, nil
}

func (q *Queries) UpdateBillReminder(ctx context.Context, b core.BillReminder) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE bill_reminders SET title = ?, amount_cents = ?, category_id = ?, wallet_id = ?,
			due_date = ?, reminder_date = ?, is_recurring = ?, frequency = ?, is_paid = ?,
			transaction_id = ?, updated_at = ?
		WHERE id = ?`,
		b.Title, nullableInt64(b.AmountCents), nullableInt64(b.CategoryID), nullableInt64(b.WalletID),
		encodeTime(b.DueDate), encodeTimePtr(b.ReminderDate), b.IsRecurring,
		nullableFrequency(b.Frequency), b.IsPaid, nullableInt64(b.TransactionID),
		encodeTime(time.Now().UTC()), b.ID)
	if err != nil {
		return fmt.Errorf("update bill reminder: %w", err)
	}
	return requireRow(res, "bill reminder", b.ID)
}

func (q *Queries) DeleteBillReminder(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM bill_reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill reminder: %w", err)
	}
	return requireRow(res, "bill reminder", id)
}

// ListBillReminders returns reminders ordered by due date. With unpaidOnly
// set, paid reminders are filtered out.
func (q *Queries) ListBillReminders(ctx context.Context, unpaidOnly bool) ([]core.BillReminder, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+billColumns+` FROM bill_reminders
		WHERE (? = 0 OR is_paid = 0)
		ORDER BY due_date ASC, id ASC`, unpaidOnly)
	if err != nil {
		return nil, fmt.Errorf("list bill reminders: %w", err)
	}
	defer rows.Close()
	return collectBills(rows)
}

// UnpaidBillsDueBetween lists unpaid reminders inside an inclusive window.
func (q *Queries) UnpaidBillsDueBetween(ctx context.Context, start, end time.Time) ([]core.BillReminder, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+billColumns+` FROM bill_reminders
		WHERE is_paid = 0 AND due_date >= ? AND due_date <= ?
		ORDER BY due_date ASC, id ASC`, encodeTime(start), encodeTime(end))
	if err != nil {
		return nil, fmt.Errorf("bills due between: %w", err)
	}
	defer rows.Close()
	return collectBills(rows)
}

// OverdueBills lists unpaid reminders strictly before the reference instant.
func (q *Queries) OverdueBills(ctx context.Context, now time.Time) ([]core.BillReminder, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+billColumns+` FROM bill_reminders
		WHERE is_paid = 0 AND due_date < ?
		ORDER BY due_date ASC, id ASC`, encodeTime(now))
	if err != nil {
		return nil, fmt.Errorf("overdue bills: %w", err)
	}
	defer rows.Close()
	return collectBills(rows)
}

func collectBills(rows *sql.Rows) ([]core.BillReminder, error) {
	var bills []core.BillReminder
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill reminder: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// SummarizeBills aggregates unpaid, overdue (due <= now), and upcoming
// (due >= now) reminders. A bill due exactly now counts in both windows.
func (q *Queries) SummarizeBills(ctx context.Context, now time.Time) (core.BillSummary, error) {
	ref := encodeTime(now)
	var s core.BillSummary
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount_cents), 0), COUNT(*),
			COALESCE(SUM(CASE WHEN due_date <= ? THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN due_date <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN due_date >= ? THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN due_date >= ? THEN 1 ELSE 0 END), 0)
		FROM bill_reminders WHERE is_paid = 0`,
		ref, ref, ref, ref).Scan(
		&s.UnpaidCents, &s.UnpaidCount,
		&s.OverdueCents, &s.OverdueCount,
		&s.UpcomingCents, &s.UpcomingCount)
	if err != nil {
		return core.BillSummary{}, fmt.Errorf("summarize bills: %w", err)
	}
	return s, nil
}

func (q *Queries) UpsertBillReminder(ctx context.Context, b core.BillReminder) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO bill_reminders (id, title, amount_cents, category_id, wallet_id, due_date,
			reminder_date, is_recurring, frequency, is_paid, transaction_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, amount_cents = excluded.amount_cents,
			category_id = excluded.category_id, wallet_id = excluded.wallet_id,
			due_date = excluded.due_date, reminder_date = excluded.reminder_date,
			is_recurring = excluded.is_recurring, frequency = excluded.frequency,
			is_paid = excluded.is_paid, transaction_id = excluded.transaction_id,
			updated_at = excluded.updated_at`,
		b.ID, b.Title, nullableInt64(b.AmountCents), nullableInt64(b.CategoryID),
		nullableInt64(b.WalletID), encodeTime(b.DueDate), encodeTimePtr(b.ReminderDate),
		b.IsRecurring, nullableFrequency(b.Frequency), b.IsPaid, nullableInt64(b.TransactionID),
		encodeTime(b.CreatedAt), encodeTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert bill reminder %d: %w", b.ID, err)
	}
	return nil
}
