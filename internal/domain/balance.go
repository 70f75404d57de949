package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Balance is one account's holding of one asset, with invariant checking.
// The ledger validates every batch before mutating, so Credit/Debit do not
// check; VerifyInvariant catches corruption after a commit.
type Balance struct {
	Asset   string          `json:"asset"`
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

// Credit adds funds to the balance.
func (b *Balance) Credit(amount decimal.Decimal) {
	b.Amount = b.Amount.Add(amount)
}

// Debit removes funds from the balance. Sufficiency must have been
// validated by the ledger beforehand.
func (b *Balance) Debit(amount decimal.Decimal) {
	b.Amount = b.Amount.Sub(amount)
}

// VerifyInvariant panics if the balance went negative. A negative balance
// after a committed batch means the validation pass was bypassed — the
// ledger is corrupt and must halt rather than keep trading.
func (b *Balance) VerifyInvariant() {
	if b.Amount.IsNegative() {
		panic(fmt.Sprintf("LEDGER_INVARIANT_NEGATIVE_BALANCE: %s/%s = %s",
			b.Asset, b.Account, b.Amount))
	}
}
