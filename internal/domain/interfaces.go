package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement is one asset transfer inside a ledger batch.
type Movement struct {
	Asset  string
	From   string
	To     string
	Amount decimal.Decimal
}

// AssetLedger is the custody capability the engine composes with. The
// engine never holds balances itself; it owns an escrow account on the
// ledger and moves value through it.
//
// Apply is all-or-nothing: either every movement of the batch is applied
// or none is. This is what makes settlement atomic across the sale-asset
// release and the payment leg.
type AssetLedger interface {
	Apply(movements ...Movement) error
	Transfer(asset, from, to string, amount decimal.Decimal) error
	BalanceOf(asset, account string) decimal.Decimal
}

// Clock provides monotonically non-decreasing timestamps. The engine reads
// it exactly once per state transition so a price is always computed at the
// instant the transition executes.
type Clock interface {
	Now() time.Time
}

// AuctionRepository persists auction snapshots and settlement records.
type AuctionRepository interface {
	SaveAuction(rec *AuctionRecord) error
	RecordSettlement(rec *SettlementRecord) error
}
