package core

// WalletDelta is a single balance adjustment produced by BalanceDeltas.
type WalletDelta struct {
	WalletID int64
	Cents    int64
}

// Apply and Reverse are the only valid signs for BalanceDeltas.
const (
	Apply   = 1
	Reverse = -1
)

// BalanceDeltas computes the balance effect a transaction has on its
// wallet(s). Passing Reverse yields the exact negation of Apply, which is
// what makes reverse-then-reapply updates correct regardless of what changed
// between the old and new version of a transaction.
//
// Rules:
//
//	income    +amount to wallet
//	expense   -amount to wallet
//	transfer  -(amount+fee) to wallet, +amount to destination
//
// A transfer without a destination is an external transfer: the source is
// debited amount+fee and there is no credit leg.
//
// The function is pure; it never reads or writes any entity.
func BalanceDeltas(t Transaction, sign int64) []WalletDelta {
	switch t.Type {
	case TransactionIncome:
		return []WalletDelta{{WalletID: t.WalletID, Cents: t.AmountCents * sign}}
	case TransactionExpense:
		return []WalletDelta{{WalletID: t.WalletID, Cents: -t.AmountCents * sign}}
	case TransactionTransfer:
		out := -(t.AmountCents + t.TransferFee) * sign
		if t.ToWalletID == nil {
			return []WalletDelta{{WalletID: t.WalletID, Cents: out}}
		}
		return []WalletDelta{
			{WalletID: t.WalletID, Cents: out},
			{WalletID: *t.ToWalletID, Cents: t.AmountCents * sign},
		}
	default:
		return nil
	}
}
