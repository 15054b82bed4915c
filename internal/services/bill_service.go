package services

import (
	"context"
	"fmt"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

// BillService manages upcoming bill reminders and the recurring-bill chain:
// paying a recurring reminder closes it and spawns the next occurrence.
type BillService struct {
	store *storage.SQLiteRepository
	now   func() time.Time
}

func NewBillService(store *storage.SQLiteRepository) *BillService {
	return &BillService{store: store, now: time.Now}
}

func (s *BillService) Create(ctx context.Context, b core.BillReminder) (core.BillReminder, error) {
	if err := b.Validate(); err != nil {
		return core.BillReminder{}, err
	}
	if b.IsRecurring && (b.Frequency == nil || (*b.Frequency != core.FrequencyMonthly && *b.Frequency != core.FrequencyYearly)) {
		return core.BillReminder{}, fmt.Errorf("recurring reminder needs a frequency: %w", core.ErrInvalidState)
	}
	b.IsPaid = false
	b.TransactionID = nil
	return s.store.Queries().CreateBillReminder(ctx, b)
}

func (s *BillService) Get(ctx context.Context, id int64) (core.BillReminder, error) {
	return s.store.Queries().GetBillReminder(ctx, id)
}

func (s *BillService) List(ctx context.Context, unpaidOnly bool) ([]core.BillReminder, error) {
	return s.store.Queries().ListBillReminders(ctx, unpaidOnly)
}

func (s *BillService) Update(ctx context.Context, b core.BillReminder) (core.BillReminder, error) {
	if err := b.Validate(); err != nil {
		return core.BillReminder{}, err
	}
	if err := s.store.Queries().UpdateBillReminder(ctx, b); err != nil {
		return core.BillReminder{}, err
	}
	return s.store.Queries().GetBillReminder(ctx, b.ID)
}

func (s *BillService) Delete(ctx context.Context, id int64) error {
	return s.store.Queries().DeleteBillReminder(ctx, id)
}

// MarkAsPaid settles a reminder, optionally linking the transaction that
// paid it. For a recurring reminder the successor is created in the same
// database transaction; the pair is returned (successor nil otherwise).
// Paying an already paid reminder is ErrInvalidState.
func (s *BillService) MarkAsPaid(ctx context.Context, id int64, transactionID *int64) (core.BillReminder, *core.BillReminder, error) {
	var (
		paid      core.BillReminder
		successor *core.BillReminder
	)
	err := s.store.ExecTx(ctx, func(q *storage.Queries) error {
		b, err := q.GetBillReminder(ctx, id)
		if err != nil {
			return err
		}
		if b.IsPaid {
			return fmt.Errorf("bill reminder %d already paid: %w", id, core.ErrInvalidState)
		}

		b.IsPaid = true
		b.TransactionID = transactionID
		if err := q.UpdateBillReminder(ctx, b); err != nil {
			return err
		}
		paid = b

		if next := NextRecurring(b); next != nil {
			created, err := q.CreateBillReminder(ctx, *next)
			if err != nil {
				return err
			}
			successor = &created
		}
		return nil
	})
	if err != nil {
		return core.BillReminder{}, nil, err
	}
	return paid, successor, nil
}

// NextRecurring derives the successor of a recurring reminder: the due date
// advances by one period and the reminder date keeps the same lead time
// before it. Non-recurring reminders and unknown frequencies yield nil.
func NextRecurring(b core.BillReminder) *core.BillReminder {
	if !b.IsRecurring || b.Frequency == nil {
		return nil
	}

	var nextDue time.Time
	switch *b.Frequency {
	case core.FrequencyMonthly:
		nextDue = b.DueDate.AddDate(0, 1, 0)
	case core.FrequencyYearly:
		nextDue = b.DueDate.AddDate(1, 0, 0)
	default:
		return nil
	}

	next := core.BillReminder{
		Title:       b.Title,
		AmountCents: b.AmountCents,
		CategoryID:  b.CategoryID,
		WalletID:    b.WalletID,
		DueDate:     nextDue,
		IsRecurring: true,
		Frequency:   b.Frequency,
	}
	if b.ReminderDate != nil {
		lead := b.DueDate.Sub(*b.ReminderDate)
		r := nextDue.Add(-lead)
		next.ReminderDate = &r
	}
	return &next
}

// Upcoming lists unpaid reminders due within the next N days, today
// included.
func (s *BillService) Upcoming(ctx context.Context, days int) ([]core.BillReminder, error) {
	if days <= 0 {
		days = 7
	}
	now := s.now().UTC()
	return s.store.Queries().UnpaidBillsDueBetween(ctx, now, now.AddDate(0, 0, days))
}

// Overdue lists unpaid reminders whose due date has passed.
func (s *BillService) Overdue(ctx context.Context) ([]core.BillReminder, error) {
	return s.store.Queries().OverdueBills(ctx, s.now().UTC())
}

// DueToday lists unpaid reminders due on the current calendar day.
func (s *BillService) DueToday(ctx context.Context) ([]core.BillReminder, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1).Add(-time.Second)
	return s.store.Queries().UnpaidBillsDueBetween(ctx, start, end)
}

// Snooze pushes an unpaid reminder's due date (and reminder date, when set)
// forward by the given number of days.
func (s *BillService) Snooze(ctx context.Context, id int64, days int) (core.BillReminder, error) {
	if days <= 0 {
		return core.BillReminder{}, fmt.Errorf("snooze days must be positive: %w", core.ErrInvalidState)
	}

	var out core.BillReminder
	err := s.store.ExecTx(ctx, func(q *storage.Queries) error {
		b, err := q.GetBillReminder(ctx, id)
		if err != nil {
			return err
		}
		if b.IsPaid {
			return fmt.Errorf("bill reminder %d already paid: %w", id, core.ErrInvalidState)
		}
		b.DueDate = b.DueDate.AddDate(0, 0, days)
		if b.ReminderDate != nil {
			r := b.ReminderDate.AddDate(0, 0, days)
			b.ReminderDate = &r
		}
		if err := q.UpdateBillReminder(ctx, b); err != nil {
			return err
		}
		out, err = q.GetBillReminder(ctx, id)
		return err
	})
	if err != nil {
		return core.BillReminder{}, err
	}
	return out, nil
}

// Summary aggregates the unpaid reminders by window.
func (s *BillService) Summary(ctx context.Context) (core.BillSummary, error) {
	return s.store.Queries().SummarizeBills(ctx, s.now().UTC())
}

// CheckDue returns the unpaid reminders whose reminder date (or due date,
// when no reminder date is set) has arrived. Notification surfaces poll
// this.
func (s *BillService) CheckDue(ctx context.Context) ([]core.BillReminder, error) {
	bills, err := s.store.Queries().ListBillReminders(ctx, true)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	var due []core.BillReminder
	for _, b := range bills {
		trigger := b.DueDate
		if b.ReminderDate != nil {
			trigger = *b.ReminderDate
		}
		if !trigger.After(now) {
			due = append(due, b)
		}
	}
	return due, nil
}
