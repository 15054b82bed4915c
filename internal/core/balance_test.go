package core

import (
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestBalanceDeltas(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		tx   Transaction
		sign int64
		want map[int64]int64
	}{
		{
			name: "income applies positive delta",
			tx:   Transaction{WalletID: 1, Type: TransactionIncome, AmountCents: 50000, TransactionDate: date},
			sign: Apply,
			want: map[int64]int64{1: 50000},
		},
		{
			name: "income reversed",
			tx:   Transaction{WalletID: 1, Type: TransactionIncome, AmountCents: 50000, TransactionDate: date},
			sign: Reverse,
			want: map[int64]int64{1: -50000},
		},
		{
			name: "expense applies negative delta",
			tx:   Transaction{WalletID: 2, Type: TransactionExpense, AmountCents: 20000, TransactionDate: date},
			sign: Apply,
			want: map[int64]int64{2: -20000},
		},
		{
			name: "transfer debits source with fee and credits destination",
			tx: Transaction{
				WalletID: 1, Type: TransactionTransfer, AmountCents: 10000,
				TransferFee: 150, ToWalletID: ptr(int64(2)), TransactionDate: date,
			},
			sign: Apply,
			want: map[int64]int64{1: -10150, 2: 10000},
		},
		{
			name: "transfer reversed restores both legs",
			tx: Transaction{
				WalletID: 1, Type: TransactionTransfer, AmountCents: 10000,
				TransferFee: 150, ToWalletID: ptr(int64(2)), TransactionDate: date,
			},
			sign: Reverse,
			want: map[int64]int64{1: 10150, 2: -10000},
		},
		{
			name: "external transfer debits source only, fee included",
			tx: Transaction{
				WalletID: 1, Type: TransactionTransfer, AmountCents: 10000,
				TransferFee: 150, TransactionDate: date,
			},
			sign: Apply,
			want: map[int64]int64{1: -10150},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deltas := BalanceDeltas(tt.tx, tt.sign)
			if len(deltas) != len(tt.want) {
				t.Fatalf("got %d deltas, want %d", len(deltas), len(tt.want))
			}
			for _, d := range deltas {
				if tt.want[d.WalletID] != d.Cents {
					t.Errorf("wallet %d: got %d cents, want %d", d.WalletID, d.Cents, tt.want[d.WalletID])
				}
			}
		})
	}
}

func TestBalanceDeltasReverseIsExactNegation(t *testing.T) {
	txs := []Transaction{
		{WalletID: 1, Type: TransactionIncome, AmountCents: 12345},
		{WalletID: 1, Type: TransactionExpense, AmountCents: 999},
		{WalletID: 1, Type: TransactionTransfer, AmountCents: 5000, TransferFee: 25, ToWalletID: ptr(int64(7))},
		{WalletID: 3, Type: TransactionTransfer, AmountCents: 5000},
	}

	for _, tx := range txs {
		applied := BalanceDeltas(tx, Apply)
		reversed := BalanceDeltas(tx, Reverse)
		if len(applied) != len(reversed) {
			t.Fatalf("%s: apply/reverse delta count mismatch", tx.Type)
		}
		for i := range applied {
			if applied[i].WalletID != reversed[i].WalletID {
				t.Errorf("%s: wallet mismatch at %d", tx.Type, i)
			}
			if applied[i].Cents != -reversed[i].Cents {
				t.Errorf("%s: delta %d not negated: %d vs %d", tx.Type, i, applied[i].Cents, reversed[i].Cents)
			}
		}
	}
}

func TestBalanceDeltasZeroSumTransfer(t *testing.T) {
	// Transfers between tracked wallets are zero-sum except for the fee.
	tx := Transaction{WalletID: 1, Type: TransactionTransfer, AmountCents: 8000, TransferFee: 100, ToWalletID: ptr(int64(2))}

	var sum int64
	for _, d := range BalanceDeltas(tx, Apply) {
		sum += d.Cents
	}
	if sum != -tx.TransferFee {
		t.Errorf("transfer sum = %d, want -fee (%d)", sum, -tx.TransferFee)
	}
}

func TestBalanceDeltasUnknownType(t *testing.T) {
	if got := BalanceDeltas(Transaction{WalletID: 1, Type: "refund", AmountCents: 100}, Apply); got != nil {
		t.Errorf("unknown type should produce no deltas, got %v", got)
	}
}
