package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

// BackupVersion is the format version written to and accepted from backup
// files.
const BackupVersion = "1.0"

// BackupFile is the full-database export format. Ids are preserved so
// cross-references survive a restore.
type BackupFile struct {
	Version   string     `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
	Data      BackupData `json:"data"`
}

type BackupData struct {
	Wallets            []core.Wallet            `json:"wallets"`
	Categories         []core.Category          `json:"categories"`
	Transactions       []core.Transaction       `json:"transactions"`
	LendBorrow         []core.LendBorrow        `json:"lendBorrow"`
	LendBorrowPayments []core.LendBorrowPayment `json:"lendBorrowPayments"`
	Budgets            []core.Budget            `json:"budgets"`
	BillReminders      []core.BillReminder      `json:"billReminders"`
	Settings           []core.Setting           `json:"settings"`
}

// BackupService exports and restores the whole ledger as one JSON document.
type BackupService struct {
	store *storage.SQLiteRepository
}

func NewBackupService(store *storage.SQLiteRepository) *BackupService {
	return &BackupService{store: store}
}

// Export serializes every table. Wallet balances are exported as stored;
// they are the accumulated transaction effects at export time.
func (s *BackupService) Export(ctx context.Context) ([]byte, error) {
	q := s.store.Queries()
	file := BackupFile{Version: BackupVersion, Timestamp: time.Now().UTC()}

	var err error
	if file.Data.Wallets, err = q.ListWallets(ctx, true); err != nil {
		return nil, err
	}
	if file.Data.Categories, err = q.ListCategories(ctx, ""); err != nil {
		return nil, err
	}
	if file.Data.Transactions, err = q.ListTransactions(ctx, storage.TransactionFilter{}); err != nil {
		return nil, err
	}
	if file.Data.LendBorrow, err = q.ListLendBorrow(ctx, storage.LendBorrowFilter{}); err != nil {
		return nil, err
	}
	if file.Data.LendBorrowPayments, err = q.ListAllPayments(ctx); err != nil {
		return nil, err
	}
	if file.Data.Budgets, err = q.ListBudgets(ctx); err != nil {
		return nil, err
	}
	if file.Data.BillReminders, err = q.ListBillReminders(ctx, false); err != nil {
		return nil, err
	}
	if file.Data.Settings, err = q.ListSettings(ctx); err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	return out, nil
}

// Import restores a backup into the database. Rows are upserted by id in
// dependency order inside one transaction: either the whole backup lands or
// none of it does. Existing rows with matching ids are overwritten; rows
// not present in the backup are kept.
func (s *BackupService) Import(ctx context.Context, data []byte) error {
	var file BackupFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse backup: %w", err)
	}
	if file.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q: %w", file.Version, core.ErrInvalidState)
	}

	return s.store.ExecTx(ctx, func(q *storage.Queries) error {
		for _, w := range file.Data.Wallets {
			if err := q.UpsertWallet(ctx, w); err != nil {
				return err
			}
		}
		for _, c := range file.Data.Categories {
			if err := q.UpsertCategory(ctx, c); err != nil {
				return err
			}
		}
		for _, t := range file.Data.Transactions {
			if err := q.UpsertTransaction(ctx, t); err != nil {
				return err
			}
		}
		for _, lb := range file.Data.LendBorrow {
			if err := q.UpsertLendBorrow(ctx, lb); err != nil {
				return err
			}
		}
		for _, p := range file.Data.LendBorrowPayments {
			if err := q.UpsertPayment(ctx, p); err != nil {
				return err
			}
		}
		for _, b := range file.Data.Budgets {
			if err := q.UpsertBudget(ctx, b); err != nil {
				return err
			}
		}
		for _, b := range file.Data.BillReminders {
			if err := q.UpsertBillReminder(ctx, b); err != nil {
				return err
			}
		}
		for _, st := range file.Data.Settings {
			if err := q.SetSetting(ctx, st.Key, st.Value); err != nil {
				return err
			}
		}
		return nil
	})
}
