package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"dutchswap/internal/domain"
	"dutchswap/internal/event"
)

// Auction is the core state machine of one sale:
//
//	Uninitialized -> Active -> Settled
//
// A per-instance mutex serializes StartAuction and Buy, so the ended latch
// is checked-then-set as one indivisible unit: two competing Buy calls can
// never both observe ended == false. CurrentPrice takes the same lock only
// for a consistent read and performs no mutation.
type Auction struct {
	mu sync.Mutex

	id           string
	variant      domain.Variant
	seller       string
	saleAsset    string
	paymentAsset string
	escrow       string // engine-owned ledger account holding the sale asset

	params     domain.AuctionParams
	startAt    time.Time
	started    bool
	ended      bool
	buyer      string
	finalPrice decimal.Decimal

	ledger domain.AssetLedger
	clock  domain.Clock
	sink   event.Sink
}

// Config binds an auction instance to its sale asset and collaborators.
// The binding is immutable for the instance's lifetime.
type Config struct {
	ID           string
	Variant      domain.Variant
	Seller       string
	SaleAsset    string
	PaymentAsset string
	Ledger       domain.AssetLedger
	Clock        domain.Clock
	Sink         event.Sink // optional
}

// New creates an auction in the Uninitialized state.
func New(cfg Config) *Auction {
	return &Auction{
		id:           cfg.ID,
		variant:      cfg.Variant,
		seller:       cfg.Seller,
		saleAsset:    cfg.SaleAsset,
		paymentAsset: cfg.PaymentAsset,
		escrow:       "escrow:" + cfg.ID,
		ledger:       cfg.Ledger,
		clock:        cfg.Clock,
		sink:         cfg.Sink,
	}
}

// StartAuction escrows the sale quantity and opens the active period.
// Valid exactly once per instance: a second call fails with
// ErrAlreadyStarted and leaves the original parameters untouched.
func (a *Auction) StartAuction(p domain.AuctionParams) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("auction %s: %w", a.id, domain.ErrAlreadyStarted)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("auction %s: %w", a.id, err)
	}

	// Pull the sale quantity into escrow before any state flips. A failed
	// pull leaves the instance Uninitialized.
	if err := a.ledger.Transfer(a.saleAsset, a.seller, a.escrow, p.Quantity); err != nil {
		return fmt.Errorf("auction %s: escrow: %w", a.id, err)
	}

	now := a.clock.Now()
	a.params = p
	a.startAt = now
	a.started = true

	a.publish(&event.AuctionStartedEvent{
		BaseEvent:         event.BaseEvent{Ts: now.Unix()},
		AuctionID:         a.id,
		Seller:            a.seller,
		InitialPrice:      p.InitialPrice,
		DurationSec:       p.DurationSec,
		PriceDecreaseRate: p.PriceDecreaseRate,
		Quantity:          p.Quantity,
	})
	return nil
}

// CurrentPrice returns the price at this instant. Pure read: repeated calls
// mutate nothing and have no ordering dependency with Buy.
func (a *Auction) CurrentPrice() (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return decimal.Zero, fmt.Errorf("auction %s: %w", a.id, domain.ErrNotStarted)
	}
	return a.params.PriceAt(a.variant, a.elapsedSec(a.clock.Now())), nil
}

// Settlement reports the outcome of a successful Buy.
type Settlement struct {
	Buyer      string
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Refund     decimal.Decimal
	ExecutedAt int64
}

// Buy settles the auction for the caller. The price is computed at the
// instant this call holds the lock, never earlier. Settlement is atomic:
// the sale-asset release and the payment leg go through the ledger as one
// batch, and the ended latch flips in the same critical section. The
// excess over the price never leaves the buyer's account; it is reported
// as Refund.
func (a *Auction) Buy(buyer string, payment decimal.Decimal) (Settlement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return Settlement{}, fmt.Errorf("auction %s: %w", a.id, domain.ErrNotActive)
	}
	if a.ended {
		return Settlement{}, fmt.Errorf("auction %s: %w", a.id, domain.ErrAuctionEnded)
	}

	now := a.clock.Now()
	price := a.params.PriceAt(a.variant, a.elapsedSec(now))
	if payment.IsNegative() || payment.LessThan(price) {
		return Settlement{}, fmt.Errorf("auction %s: %w: offered %s, price %s",
			a.id, domain.ErrInsufficientPayment, payment, price)
	}

	if err := a.ledger.Apply(
		domain.Movement{Asset: a.saleAsset, From: a.escrow, To: buyer, Amount: a.params.Quantity},
		domain.Movement{Asset: a.paymentAsset, From: buyer, To: a.seller, Amount: price},
	); err != nil {
		return Settlement{}, fmt.Errorf("auction %s: settle: %w", a.id, err)
	}

	a.ended = true
	a.buyer = buyer
	a.finalPrice = price

	s := Settlement{
		Buyer:      buyer,
		Price:      price,
		Quantity:   a.params.Quantity,
		Refund:     payment.Sub(price),
		ExecutedAt: now.Unix(),
	}
	a.publish(&event.SwapExecutedEvent{
		BaseEvent: event.BaseEvent{Ts: now.Unix()},
		AuctionID: a.id,
		Buyer:     buyer,
		Price:     price,
		Quantity:  a.params.Quantity,
		Refund:    s.Refund,
	})
	return s, nil
}

// ID returns the instance identifier.
func (a *Auction) ID() string { return a.id }

// Seller returns the identity that receives payment.
func (a *Auction) Seller() string { return a.seller }

// EscrowAccount returns the ledger account holding the escrowed sale asset.
func (a *Auction) EscrowAccount() string { return a.escrow }

// Ended reports whether the single-winner latch has been set.
func (a *Auction) Ended() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ended
}

// Buyer returns the settling buyer, empty until settlement.
func (a *Auction) Buyer() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buyer
}

// Snapshot returns a consistent view of the instance.
func (a *Auction) Snapshot() domain.AuctionSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := domain.StateUninitialized
	var startedAt int64
	if a.started {
		state = domain.StateActive
		startedAt = a.startAt.Unix()
	}
	if a.ended {
		state = domain.StateSettled
	}
	return domain.AuctionSnapshot{
		ID:           a.id,
		Variant:      a.variant,
		State:        state,
		Seller:       a.seller,
		SaleAsset:    a.saleAsset,
		PaymentAsset: a.paymentAsset,
		Params:       a.params,
		StartedAt:    startedAt,
		Ended:        a.ended,
		Buyer:        a.buyer,
		FinalPrice:   a.finalPrice,
	}
}

// elapsedSec clamps elapsed time to whole non-negative seconds. Caller must
// hold the lock.
func (a *Auction) elapsedSec(now time.Time) int64 {
	elapsed := int64(now.Sub(a.startAt) / time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (a *Auction) publish(ev event.Event) {
	if a.sink != nil {
		a.sink.Publish(ev)
	}
}
