package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Variant selects the price-decay behavior of an auction.
// Forward and reverse auctions share one state machine; the variant only
// controls how elapsed time is clamped in the pricing function.
type Variant string

const (
	// VariantForward clamps elapsed time at the duration: past the active
	// window the price plateaus at max(0, initial - rate*duration).
	VariantForward Variant = "FORWARD"

	// VariantReverse reports exactly zero once elapsed >= duration: the
	// asset becomes free to claim until someone buys.
	VariantReverse Variant = "REVERSE"
)

// AuctionState is the lifecycle state of an auction instance.
type AuctionState string

const (
	StateUninitialized AuctionState = "UNINITIALIZED"
	StateActive        AuctionState = "ACTIVE"
	StateSettled       AuctionState = "SETTLED"
)

// AuctionParams are the sale parameters fixed by StartAuction.
type AuctionParams struct {
	InitialPrice      decimal.Decimal `json:"initial_price"`
	DurationSec       int64           `json:"duration_sec"`
	PriceDecreaseRate decimal.Decimal `json:"price_decrease_rate"` // per second
	Quantity          decimal.Decimal `json:"quantity"`
}

// Validate checks start preconditions: positive quantity and duration,
// non-negative price and rate.
func (p AuctionParams) Validate() error {
	if !p.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidParameters, p.Quantity)
	}
	if p.DurationSec <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidParameters, p.DurationSec)
	}
	if p.InitialPrice.IsNegative() {
		return fmt.Errorf("%w: initial price must not be negative, got %s", ErrInvalidParameters, p.InitialPrice)
	}
	if p.PriceDecreaseRate.IsNegative() {
		return fmt.Errorf("%w: price decrease rate must not be negative, got %s", ErrInvalidParameters, p.PriceDecreaseRate)
	}
	return nil
}

// PriceAt computes the decayed price after elapsed seconds.
// The decay is strictly linear: initial - rate*elapsed, clamped at zero.
// Elapsed is clamped to non-negative so a clock hiccup can never raise the
// price above initial.
func (p AuctionParams) PriceAt(variant Variant, elapsedSec int64) decimal.Decimal {
	if elapsedSec < 0 {
		elapsedSec = 0
	}

	switch variant {
	case VariantForward:
		if elapsedSec > p.DurationSec {
			elapsedSec = p.DurationSec
		}
	case VariantReverse:
		if elapsedSec >= p.DurationSec {
			return decimal.Zero
		}
	}

	price := p.InitialPrice.Sub(p.PriceDecreaseRate.Mul(decimal.NewFromInt(elapsedSec)))
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// AuctionSnapshot is a consistent external view of one auction instance.
type AuctionSnapshot struct {
	ID           string          `json:"id"`
	Variant      Variant         `json:"variant"`
	State        AuctionState    `json:"state"`
	Seller       string          `json:"seller"`
	SaleAsset    string          `json:"sale_asset"`
	PaymentAsset string          `json:"payment_asset"`
	Params       AuctionParams   `json:"params"`
	StartedAt    int64           `json:"started_at"` // unix seconds, 0 until started
	Ended        bool            `json:"ended"`
	Buyer        string          `json:"buyer,omitempty"`
	FinalPrice   decimal.Decimal `json:"final_price"`
}
