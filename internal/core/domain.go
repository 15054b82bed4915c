package core

import (
	"errors"
	"strings"
	"time"
)

const (
	WalletBank          WalletType = "bank"
	WalletCash          WalletType = "cash"
	WalletDigitalWallet WalletType = "digital_wallet"
	WalletCreditCard    WalletType = "credit_card"
)

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
)

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

const (
	Lent     LendBorrowType = "lent"
	Borrowed LendBorrowType = "borrowed"
)

const (
	DebtPending   LendBorrowStatus = "pending"
	DebtPartial   LendBorrowStatus = "partial"
	DebtCompleted LendBorrowStatus = "completed"
)

const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

const (
	FrequencyMonthly BillFrequency = "monthly"
	FrequencyYearly  BillFrequency = "yearly"
)

type (
	WalletType       string
	CategoryType     string
	TransactionType  string
	LendBorrowType   string
	LendBorrowStatus string
	BudgetPeriod     string
	BillFrequency    string

	// Wallet is a balance-holding account. Balance is the running sum of all
	// income/expense/transfer effects applied to it; for credit cards the
	// balance is conventionally <= 0 (debt owed).
	Wallet struct {
		ID               int64      `json:"id"`
		Name             string     `json:"name"`
		Type             WalletType `json:"type"`
		BalanceCents     int64      `json:"balance_cents"`
		Currency         string     `json:"currency"`
		CreditLimitCents *int64     `json:"credit_limit_cents,omitempty"`
		BillingDay       *int       `json:"billing_day,omitempty"`
		DueDay           *int       `json:"due_day,omitempty"`
		CashbackRate     *float64   `json:"cashback_rate,omitempty"`
		IsActive         bool       `json:"is_active"`
		CreatedAt        time.Time  `json:"created_at"`
		UpdatedAt        time.Time  `json:"updated_at"`
	}

	// Category classifies transactions. ParentID enables a single level of
	// nesting: a parent must itself have no parent.
	Category struct {
		ID       int64        `json:"id"`
		Name     string       `json:"name"`
		Type     CategoryType `json:"type"`
		ParentID *int64       `json:"parent_id,omitempty"`
	}

	// Transaction is a single ledger movement. Transfers carry a destination
	// wallet and an optional fee; a transfer without a destination is an
	// "external transfer" that only debits the source wallet.
	Transaction struct {
		ID              int64           `json:"id"`
		WalletID        int64           `json:"wallet_id"`
		Type            TransactionType `json:"type"`
		AmountCents     int64           `json:"amount_cents"`
		CategoryID      *int64          `json:"category_id,omitempty"`
		Description     string          `json:"description"`
		Notes           string          `json:"notes,omitempty"`
		ToWalletID      *int64          `json:"to_wallet_id,omitempty"`
		TransferFee     int64           `json:"transfer_fee_cents,omitempty"`
		TransactionDate time.Time       `json:"transaction_date"`
		CreatedAt       time.Time       `json:"created_at"`
		UpdatedAt       time.Time       `json:"updated_at"`
	}

	// LendBorrow tracks money lent to or borrowed from a person.
	// remaining = amount - sum(payments), clamped to >= 0; status is a pure
	// function of remaining vs amount.
	LendBorrow struct {
		ID             int64            `json:"id"`
		Type           LendBorrowType   `json:"type"`
		PersonName     string           `json:"person_name"`
		AmountCents    int64            `json:"amount_cents"`
		RemainingCents int64            `json:"remaining_cents"`
		Status         LendBorrowStatus `json:"status"`
		DueDate        *time.Time       `json:"due_date,omitempty"`
		WalletID       *int64           `json:"wallet_id,omitempty"`
		Notes          string           `json:"notes,omitempty"`
		CreatedAt      time.Time        `json:"created_at"`
		UpdatedAt      time.Time        `json:"updated_at"`
	}

	// LendBorrowPayment is a repayment against a LendBorrow record. Owned by
	// the record; deleting the record cascades to its payments.
	LendBorrowPayment struct {
		ID            int64     `json:"id"`
		LendBorrowID  int64     `json:"lend_borrow_id"`
		AmountCents   int64     `json:"amount_cents"`
		PaymentDate   time.Time `json:"payment_date"`
		TransactionID *int64    `json:"transaction_id,omitempty"`
		CreatedAt     time.Time `json:"created_at"`
	}

	// Budget caps spending for one category in one (month, year) period.
	// At most one row exists per (category, month, year); upsert semantics
	// enforce this, not a database constraint.
	Budget struct {
		ID          int64        `json:"id"`
		CategoryID  int64        `json:"category_id"`
		AmountCents int64        `json:"amount_cents"`
		Period      BudgetPeriod `json:"period"`
		Month       int          `json:"month"`
		Year        int          `json:"year"`
		CreatedAt   time.Time    `json:"created_at"`
		UpdatedAt   time.Time    `json:"updated_at"`
	}

	// BillReminder tracks an upcoming bill. When a recurring reminder is paid
	// a successor is spawned with the due date advanced by one period and the
	// same lead time between reminder date and due date.
	BillReminder struct {
		ID            int64          `json:"id"`
		Title         string         `json:"title"`
		AmountCents   *int64         `json:"amount_cents,omitempty"`
		CategoryID    *int64         `json:"category_id,omitempty"`
		WalletID      *int64         `json:"wallet_id,omitempty"`
		DueDate       time.Time      `json:"due_date"`
		ReminderDate  *time.Time     `json:"reminder_date,omitempty"`
		IsRecurring   bool           `json:"is_recurring"`
		Frequency     *BillFrequency `json:"frequency,omitempty"`
		IsPaid        bool           `json:"is_paid"`
		TransactionID *int64         `json:"transaction_id,omitempty"`
		CreatedAt     time.Time      `json:"created_at"`
		UpdatedAt     time.Time      `json:"updated_at"`
	}

	// Setting is a process-wide key/value pair. Non-string values are stored
	// JSON-encoded.
	Setting struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidWalletType   = errors.New("invalid wallet type")
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrInvalidTxType       = errors.New("invalid transaction type")
	ErrInvalidDebtType     = errors.New("invalid lend/borrow type")
	ErrInvalidPeriod       = errors.New("invalid budget period")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrZeroDate            = errors.New("date cannot be zero")
)

func (t WalletType) Valid() bool {
	switch t {
	case WalletBank, WalletCash, WalletDigitalWallet, WalletCreditCard:
		return true
	}
	return false
}

func (t CategoryType) Valid() bool {
	return t == CategoryExpense || t == CategoryIncome
}

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionIncome, TransactionExpense, TransactionTransfer:
		return true
	}
	return false
}

func (t LendBorrowType) Valid() bool {
	return t == Lent || t == Borrowed
}

func (p BudgetPeriod) Valid() bool {
	return p == PeriodMonthly || p == PeriodYearly
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	if !w.Type.Valid() {
		return ErrInvalidWalletType
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidCategoryType
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidTxType
	}
	if t.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if t.TransferFee < 0 {
		return ErrInvalidAmount
	}
	if t.TransactionDate.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (lb LendBorrow) Validate() error {
	if !lb.Type.Valid() {
		return ErrInvalidDebtType
	}
	if strings.TrimSpace(lb.PersonName) == "" {
		return ErrEmptyName
	}
	if lb.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p LendBorrowPayment) Validate() error {
	if p.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if p.PaymentDate.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (b Budget) Validate() error {
	if b.AmountCents < 0 {
		return ErrInvalidAmount
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (br BillReminder) Validate() error {
	if strings.TrimSpace(br.Title) == "" {
		return ErrEmptyName
	}
	if br.DueDate.IsZero() {
		return ErrZeroDate
	}
	if br.AmountCents != nil && *br.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// DeriveDebtStatus computes the lend/borrow status from the original and
// remaining amounts. Any state is reachable from any other via payment
// add/remove; no transition is blocked.
func DeriveDebtStatus(amountCents, remainingCents int64) LendBorrowStatus {
	switch {
	case remainingCents <= 0:
		return DebtCompleted
	case remainingCents < amountCents:
		return DebtPartial
	default:
		return DebtPending
	}
}

// CreditCardInfo is the derived view of a credit-card wallet.
type CreditCardInfo struct {
	WalletID         int64   `json:"wallet_id"`
	DebtCents        int64   `json:"debt_cents"`
	CreditLimitCents int64   `json:"credit_limit_cents"`
	Utilization      float64 `json:"utilization"`
	AvailableCents   int64   `json:"available_cents"`
	CashbackRate     float64 `json:"cashback_rate"`
}

// CreditInfo derives the credit-card view of the wallet. Returns
// ErrInvalidState for non-credit-card wallets.
func (w Wallet) CreditInfo() (CreditCardInfo, error) {
	if w.Type != WalletCreditCard {
		return CreditCardInfo{}, ErrInvalidState
	}
	info := CreditCardInfo{WalletID: w.ID}
	if w.BalanceCents < 0 {
		info.DebtCents = -w.BalanceCents
	}
	if w.CreditLimitCents != nil {
		info.CreditLimitCents = *w.CreditLimitCents
		if *w.CreditLimitCents > 0 {
			info.Utilization = float64(info.DebtCents) / float64(*w.CreditLimitCents) * 100
		}
		info.AvailableCents = *w.CreditLimitCents - info.DebtCents
	}
	if w.CashbackRate != nil {
		info.CashbackRate = *w.CashbackRate
	}
	return info, nil
}
