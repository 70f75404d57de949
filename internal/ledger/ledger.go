package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"dutchswap/internal/domain"
)

// Ledger is an in-memory multi-asset ledger. It stands in for the external
// asset ledgers of the deployment environment: accounts are opaque IDs,
// balances are exact decimals, and a batch of movements is applied
// all-or-nothing under one lock. The engine's settlement atomicity rests
// entirely on Apply.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]*domain.Balance // "asset/account" -> balance
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[string]*domain.Balance)}
}

func key(asset, account string) string {
	return asset + "/" + account
}

// get returns the balance for an asset/account pair, creating it at zero.
// Caller must hold the lock.
func (l *Ledger) get(asset, account string) *domain.Balance {
	k := key(asset, account)
	b, ok := l.balances[k]
	if !ok {
		b = &domain.Balance{Asset: asset, Account: account, Amount: decimal.Zero}
		l.balances[k] = b
	}
	return b
}

// Seed credits an account with an initial supply. Used at bootstrap to give
// the seller its sale-asset inventory and buyers their payment funds.
func (l *Ledger) Seed(asset, account string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.get(asset, account).Credit(amount)
}

// Apply executes a batch of movements atomically: every movement is
// validated against the balances the batch itself produces, and only a
// fully valid batch mutates the ledger. A failed Apply leaves every
// balance exactly as before.
func (l *Ledger) Apply(movements ...domain.Movement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Validation pass on a scratch view. Earlier movements in the batch
	// fund later ones, so the scratch carries running balances.
	scratch := make(map[string]decimal.Decimal, len(movements)*2)
	avail := func(asset, account string) decimal.Decimal {
		k := key(asset, account)
		if v, ok := scratch[k]; ok {
			return v
		}
		if b, ok := l.balances[k]; ok {
			return b.Amount
		}
		return decimal.Zero
	}

	for _, m := range movements {
		if m.Amount.IsNegative() {
			return fmt.Errorf("%w: negative movement amount %s %s", domain.ErrInvalidParameters, m.Amount, m.Asset)
		}
		have := avail(m.Asset, m.From)
		if have.LessThan(m.Amount) {
			return fmt.Errorf("%w: %s needs %s %s, has %s",
				domain.ErrInsufficientFunds, m.From, m.Amount, m.Asset, have)
		}
		scratch[key(m.Asset, m.From)] = have.Sub(m.Amount)
		scratch[key(m.Asset, m.To)] = avail(m.Asset, m.To).Add(m.Amount)
	}

	// Commit pass.
	for _, m := range movements {
		l.get(m.Asset, m.From).Debit(m.Amount)
		l.get(m.Asset, m.To).Credit(m.Amount)
	}
	for _, m := range movements {
		l.get(m.Asset, m.From).VerifyInvariant()
		l.get(m.Asset, m.To).VerifyInvariant()
	}
	return nil
}

// Transfer moves a single amount between two accounts.
func (l *Ledger) Transfer(asset, from, to string, amount decimal.Decimal) error {
	return l.Apply(domain.Movement{Asset: asset, From: from, To: to, Amount: amount})
}

// BalanceOf returns the current balance, zero for unknown accounts.
func (l *Ledger) BalanceOf(asset, account string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[key(asset, account)]; ok {
		return b.Amount
	}
	return decimal.Zero
}

// Snapshot returns a copy of all balances sorted by asset/account, for
// state dumps and the feed's balance view.
func (l *Ledger) Snapshot() []domain.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]domain.Balance, 0, len(l.balances))
	for _, b := range l.balances {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Asset != result[j].Asset {
			return result[i].Asset < result[j].Asset
		}
		return result[i].Account < result[j].Account
	})
	return result
}
