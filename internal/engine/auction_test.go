package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dutchswap/internal/domain"
	"dutchswap/internal/event"
	"dutchswap/internal/ledger"
	"dutchswap/pkg/clock"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func forwardParams() domain.AuctionParams {
	return domain.AuctionParams{
		InitialPrice:      dec("0.01"),
		DurationSec:       3600,
		PriceDecreaseRate: dec("0.000001"),
		Quantity:          dec("10"),
	}
}

func setup(t *testing.T, variant domain.Variant) (*Auction, *ledger.Ledger, *clock.Manual) {
	t.Helper()
	led := ledger.New()
	led.Seed("MCK", "seller", dec("100"))
	led.Seed("ETH", "buyer", dec("5"))
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	a := New(Config{
		ID:           "sale-1",
		Variant:      variant,
		Seller:       "seller",
		SaleAsset:    "MCK",
		PaymentAsset: "ETH",
		Ledger:       led,
		Clock:        clk,
	})
	return a, led, clk
}

func TestStartAuction(t *testing.T) {
	t.Run("Escrows Quantity", func(t *testing.T) {
		a, led, _ := setup(t, domain.VariantForward)

		if err := a.StartAuction(forwardParams()); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}
		if got := led.BalanceOf("MCK", "seller"); !got.Equal(dec("90")) {
			t.Errorf("seller balance: expected 90, got %s", got)
		}
		if got := led.BalanceOf("MCK", a.EscrowAccount()); !got.Equal(dec("10")) {
			t.Errorf("escrow balance: expected 10, got %s", got)
		}
		if snap := a.Snapshot(); snap.State != domain.StateActive {
			t.Errorf("expected ACTIVE, got %s", snap.State)
		}
	})

	t.Run("No Restart", func(t *testing.T) {
		a, led, _ := setup(t, domain.VariantForward)
		if err := a.StartAuction(forwardParams()); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}

		other := forwardParams()
		other.InitialPrice = dec("99")
		err := a.StartAuction(other)
		if !errors.Is(err, domain.ErrAlreadyStarted) {
			t.Fatalf("expected ErrAlreadyStarted, got %v", err)
		}
		// Original parameters and escrow must be unchanged.
		if snap := a.Snapshot(); !snap.Params.InitialPrice.Equal(dec("0.01")) {
			t.Errorf("params mutated by rejected restart: %s", snap.Params.InitialPrice)
		}
		if got := led.BalanceOf("MCK", a.EscrowAccount()); !got.Equal(dec("10")) {
			t.Errorf("escrow changed by rejected restart: %s", got)
		}
	})

	t.Run("Invalid Parameters", func(t *testing.T) {
		cases := []struct {
			name   string
			mutate func(*domain.AuctionParams)
		}{
			{"Zero Quantity", func(p *domain.AuctionParams) { p.Quantity = decimal.Zero }},
			{"Negative Quantity", func(p *domain.AuctionParams) { p.Quantity = dec("-1") }},
			{"Zero Duration", func(p *domain.AuctionParams) { p.DurationSec = 0 }},
			{"Negative Price", func(p *domain.AuctionParams) { p.InitialPrice = dec("-0.01") }},
			{"Negative Rate", func(p *domain.AuctionParams) { p.PriceDecreaseRate = dec("-0.1") }},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				a, led, _ := setup(t, domain.VariantForward)
				p := forwardParams()
				tc.mutate(&p)

				if err := a.StartAuction(p); !errors.Is(err, domain.ErrInvalidParameters) {
					t.Fatalf("expected ErrInvalidParameters, got %v", err)
				}
				if snap := a.Snapshot(); snap.State != domain.StateUninitialized {
					t.Errorf("rejected start must stay UNINITIALIZED, got %s", snap.State)
				}
				if got := led.BalanceOf("MCK", "seller"); !got.Equal(dec("100")) {
					t.Errorf("rejected start moved funds: %s", got)
				}
			})
		}
	})

	t.Run("Seller Without Inventory", func(t *testing.T) {
		a, led, _ := setup(t, domain.VariantForward)
		p := forwardParams()
		p.Quantity = dec("1000") // seller only holds 100

		err := a.StartAuction(p)
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}
		if snap := a.Snapshot(); snap.State != domain.StateUninitialized {
			t.Errorf("failed escrow must stay UNINITIALIZED, got %s", snap.State)
		}
		if got := led.BalanceOf("MCK", "seller"); !got.Equal(dec("100")) {
			t.Errorf("failed escrow moved funds: %s", got)
		}
	})
}

func TestCurrentPrice_Forward(t *testing.T) {
	t.Run("Before Start", func(t *testing.T) {
		a, _, _ := setup(t, domain.VariantForward)
		if _, err := a.CurrentPrice(); !errors.Is(err, domain.ErrNotStarted) {
			t.Fatalf("expected ErrNotStarted, got %v", err)
		}
	})

	t.Run("Linear Decay", func(t *testing.T) {
		a, _, clk := setup(t, domain.VariantForward)
		if err := a.StartAuction(forwardParams()); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}

		price, _ := a.CurrentPrice()
		if !price.Equal(dec("0.01")) {
			t.Errorf("at t=0: expected 0.01, got %s", price)
		}

		clk.Advance(600 * time.Second)
		price, _ = a.CurrentPrice()
		if !price.Equal(dec("0.0094")) {
			t.Errorf("at t=600: expected 0.0094, got %s", price)
		}
	})

	t.Run("Monotonic Decay", func(t *testing.T) {
		a, _, clk := setup(t, domain.VariantForward)
		if err := a.StartAuction(forwardParams()); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}

		prev, _ := a.CurrentPrice()
		for i := 0; i < 20; i++ {
			clk.Advance(300 * time.Second)
			price, err := a.CurrentPrice()
			if err != nil {
				t.Fatalf("CurrentPrice failed: %v", err)
			}
			if price.GreaterThan(prev) {
				t.Fatalf("price rose from %s to %s", prev, price)
			}
			if price.IsNegative() {
				t.Fatalf("price went negative: %s", price)
			}
			prev = price
		}
	})

	t.Run("Plateau Past Duration", func(t *testing.T) {
		a, _, clk := setup(t, domain.VariantForward)
		if err := a.StartAuction(forwardParams()); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}

		// Floor = 0.01 - 0.000001*3600 = 0.0064, held forever after.
		clk.Advance(3600 * time.Second)
		atDuration, _ := a.CurrentPrice()
		if !atDuration.Equal(dec("0.0064")) {
			t.Errorf("at duration: expected 0.0064, got %s", atDuration)
		}

		clk.Advance(1_000_000 * time.Second)
		farBeyond, _ := a.CurrentPrice()
		if !farBeyond.Equal(atDuration) {
			t.Errorf("plateau broken: %s vs %s", farBeyond, atDuration)
		}
	})

	t.Run("Clamped At Zero", func(t *testing.T) {
		a, _, clk := setup(t, domain.VariantForward)
		p := forwardParams()
		p.PriceDecreaseRate = dec("0.001") // hits zero after 10s
		if err := a.StartAuction(p); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}

		clk.Advance(60 * time.Second)
		price, _ := a.CurrentPrice()
		if !price.IsZero() {
			t.Errorf("expected exact zero, got %s", price)
		}
	})
}

func TestCurrentPrice_Reverse(t *testing.T) {
	params := domain.AuctionParams{
		InitialPrice:      dec("10"),
		DurationSec:       300,
		PriceDecreaseRate: dec("0.05"),
		Quantity:          dec("1"),
	}

	t.Run("Linear Decay", func(t *testing.T) {
		a, _, clk := setup(t, domain.VariantReverse)
		if err := a.StartAuction(params); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}

		clk.Advance(120 * time.Second)
		price, _ := a.CurrentPrice()
		if !price.Equal(dec("4")) {
			t.Errorf("at t=120: expected 4, got %s", price)
		}
	})

	t.Run("Zero Past Duration", func(t *testing.T) {
		a, _, clk := setup(t, domain.VariantReverse)
		if err := a.StartAuction(params); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}

		clk.Advance(301 * time.Second)
		price, _ := a.CurrentPrice()
		if !price.IsZero() {
			t.Errorf("past duration: expected exact zero, got %s", price)
		}

		clk.Advance(10_000_000 * time.Second)
		price, _ = a.CurrentPrice()
		if !price.IsZero() {
			t.Errorf("far past duration: expected exact zero, got %s", price)
		}
	})

	t.Run("Zero Before Duration When Decayed Out", func(t *testing.T) {
		a, _, clk := setup(t, domain.VariantReverse)
		steep := params
		steep.PriceDecreaseRate = dec("1") // zero after 10s, duration 300
		if err := a.StartAuction(steep); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}

		clk.Advance(20 * time.Second)
		price, _ := a.CurrentPrice()
		if !price.IsZero() {
			t.Errorf("decayed-out price: expected exact zero, got %s", price)
		}
	})
}

func TestBuy(t *testing.T) {
	t.Run("Settlement At Instant Price", func(t *testing.T) {
		a, led, clk := setup(t, domain.VariantForward)
		if err := a.StartAuction(forwardParams()); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}
		clk.Advance(600 * time.Second)

		s, err := a.Buy("buyer", dec("0.0094"))
		if err != nil {
			t.Fatalf("Buy failed: %v", err)
		}
		if !s.Price.Equal(dec("0.0094")) {
			t.Errorf("price: expected 0.0094, got %s", s.Price)
		}
		if !s.Refund.IsZero() {
			t.Errorf("refund: expected 0, got %s", s.Refund)
		}
		if got := led.BalanceOf("MCK", "buyer"); !got.Equal(dec("10")) {
			t.Errorf("buyer sale asset: expected 10, got %s", got)
		}
		if got := led.BalanceOf("ETH", "seller"); !got.Equal(dec("0.0094")) {
			t.Errorf("seller payment: expected 0.0094, got %s", got)
		}
		if got := led.BalanceOf("ETH", "buyer"); !got.Equal(dec("4.9906")) {
			t.Errorf("buyer payment asset: expected 4.9906, got %s", got)
		}
		if got := led.BalanceOf("MCK", a.EscrowAccount()); !got.IsZero() {
			t.Errorf("escrow not emptied: %s", got)
		}
		if !a.Ended() {
			t.Error("ended latch not set")
		}
		if a.Buyer() != "buyer" {
			t.Errorf("buyer: expected buyer, got %s", a.Buyer())
		}
		if snap := a.Snapshot(); snap.State != domain.StateSettled {
			t.Errorf("expected SETTLED, got %s", snap.State)
		}
	})

	t.Run("Excess Payment Stays With Buyer", func(t *testing.T) {
		a, led, clk := setup(t, domain.VariantForward)
		if err := a.StartAuction(forwardParams()); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}
		clk.Advance(600 * time.Second)

		s, err := a.Buy("buyer", dec("0.01"))
		if err != nil {
			t.Fatalf("Buy failed: %v", err)
		}
		if !s.Refund.Equal(dec("0.0006")) {
			t.Errorf("refund: expected 0.0006, got %s", s.Refund)
		}
		// Only the price leaves the buyer's account.
		if got := led.BalanceOf("ETH", "buyer"); !got.Equal(dec("4.9906")) {
			t.Errorf("buyer payment asset: expected 4.9906, got %s", got)
		}
		if got := led.BalanceOf("ETH", "seller"); !got.Equal(dec("0.0094")) {
			t.Errorf("seller payment: expected 0.0094, got %s", got)
		}
	})

	t.Run("Before Start", func(t *testing.T) {
		a, _, _ := setup(t, domain.VariantForward)
		if _, err := a.Buy("buyer", dec("1")); !errors.Is(err, domain.ErrNotActive) {
			t.Fatalf("expected ErrNotActive, got %v", err)
		}
	})

	t.Run("Insufficient Payment", func(t *testing.T) {
		a, led, _ := setup(t, domain.VariantForward)
		if err := a.StartAuction(forwardParams()); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}

		_, err := a.Buy("buyer", dec("0.009"))
		if !errors.Is(err, domain.ErrInsufficientPayment) {
			t.Fatalf("expected ErrInsufficientPayment, got %v", err)
		}
		// Failed call leaves everything as before.
		if a.Ended() {
			t.Error("failed buy set the latch")
		}
		if got := led.BalanceOf("MCK", a.EscrowAccount()); !got.Equal(dec("10")) {
			t.Errorf("failed buy touched escrow: %s", got)
		}
	})

	t.Run("Negative Payment", func(t *testing.T) {
		a, _, clk := setup(t, domain.VariantForward)
		p := forwardParams()
		p.PriceDecreaseRate = dec("0.001")
		if err := a.StartAuction(p); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}
		clk.Advance(60 * time.Second) // price is now zero

		if _, err := a.Buy("buyer", dec("-1")); !errors.Is(err, domain.ErrInsufficientPayment) {
			t.Fatalf("expected ErrInsufficientPayment, got %v", err)
		}
	})

	t.Run("After Settlement", func(t *testing.T) {
		a, _, clk := setup(t, domain.VariantForward)
		if err := a.StartAuction(forwardParams()); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}
		clk.Advance(600 * time.Second)
		if _, err := a.Buy("buyer", dec("0.0094")); err != nil {
			t.Fatalf("Buy failed: %v", err)
		}

		// Any later buy fails, regardless of payment offered.
		if _, err := a.Buy("buyer", dec("4")); !errors.Is(err, domain.ErrAuctionEnded) {
			t.Fatalf("expected ErrAuctionEnded, got %v", err)
		}
	})

	t.Run("Buyer Without Funds", func(t *testing.T) {
		a, led, _ := setup(t, domain.VariantForward)
		if err := a.StartAuction(forwardParams()); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}

		_, err := a.Buy("pauper", dec("0.01"))
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}
		// Atomic failure: the sale asset leg must not have been applied.
		if a.Ended() {
			t.Error("failed settlement set the latch")
		}
		if got := led.BalanceOf("MCK", a.EscrowAccount()); !got.Equal(dec("10")) {
			t.Errorf("failed settlement drained escrow: %s", got)
		}
		if got := led.BalanceOf("MCK", "pauper"); !got.IsZero() {
			t.Errorf("failed settlement credited buyer: %s", got)
		}
	})

	t.Run("Free Claim At Zero Price", func(t *testing.T) {
		a, led, clk := setup(t, domain.VariantReverse)
		p := domain.AuctionParams{
			InitialPrice:      dec("10"),
			DurationSec:       300,
			PriceDecreaseRate: dec("0.05"),
			Quantity:          dec("10"),
		}
		if err := a.StartAuction(p); err != nil {
			t.Fatalf("StartAuction failed: %v", err)
		}
		clk.Advance(301 * time.Second)

		s, err := a.Buy("buyer", decimal.Zero)
		if err != nil {
			t.Fatalf("Buy at zero price failed: %v", err)
		}
		if !s.Price.IsZero() {
			t.Errorf("price: expected 0, got %s", s.Price)
		}
		if got := led.BalanceOf("MCK", "buyer"); !got.Equal(dec("10")) {
			t.Errorf("buyer sale asset: expected 10, got %s", got)
		}
		if got := led.BalanceOf("ETH", "seller"); !got.IsZero() {
			t.Errorf("seller should receive nothing, got %s", got)
		}
	})
}

func TestBuy_SingleWinner(t *testing.T) {
	const contenders = 16

	led := ledger.New()
	led.Seed("MCK", "seller", dec("100"))
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	a := New(Config{
		ID:           "sale-1",
		Variant:      domain.VariantForward,
		Seller:       "seller",
		SaleAsset:    "MCK",
		PaymentAsset: "ETH",
		Ledger:       led,
		Clock:        clk,
	})
	if err := a.StartAuction(forwardParams()); err != nil {
		t.Fatalf("StartAuction failed: %v", err)
	}

	buyers := make([]string, contenders)
	for i := range buyers {
		buyers[i] = "buyer-" + string(rune('a'+i))
		led.Seed("ETH", buyers[i], dec("1"))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := make([]string, 0, 1)
	failures := 0

	for _, buyer := range buyers {
		wg.Add(1)
		go func(b string) {
			defer wg.Done()
			_, err := a.Buy(b, dec("0.01"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, b)
				return
			}
			if !errors.Is(err, domain.ErrAuctionEnded) {
				t.Errorf("loser got %v, expected ErrAuctionEnded", err)
			}
			failures++
		}(buyer)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", len(winners))
	}
	if failures != contenders-1 {
		t.Errorf("expected %d losers, got %d", contenders-1, failures)
	}
	if a.Buyer() != winners[0] {
		t.Errorf("recorded buyer %s, winner %s", a.Buyer(), winners[0])
	}
	if got := led.BalanceOf("MCK", winners[0]); !got.Equal(dec("10")) {
		t.Errorf("winner sale asset: expected 10, got %s", got)
	}
	if got := led.BalanceOf("MCK", a.EscrowAccount()); !got.IsZero() {
		t.Errorf("escrow not emptied exactly once: %s", got)
	}
}

func TestEscrowConservation_UnsoldAuction(t *testing.T) {
	a, led, clk := setup(t, domain.VariantForward)
	if err := a.StartAuction(forwardParams()); err != nil {
		t.Fatalf("StartAuction failed: %v", err)
	}

	// No buyer ever shows up. The auction stays Active at its floor and
	// the escrowed quantity is never lost.
	clk.Advance(100 * 24 * time.Hour)
	if got := led.BalanceOf("MCK", a.EscrowAccount()); !got.Equal(dec("10")) {
		t.Errorf("escrow leaked: %s", got)
	}
	if snap := a.Snapshot(); snap.State != domain.StateActive {
		t.Errorf("unsold auction must stay ACTIVE, got %s", snap.State)
	}
}

type captureSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *captureSink) Publish(ev event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func TestEvents(t *testing.T) {
	led := ledger.New()
	led.Seed("MCK", "seller", dec("100"))
	led.Seed("ETH", "buyer", dec("5"))
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	sink := &captureSink{}
	a := New(Config{
		ID:           "sale-1",
		Variant:      domain.VariantForward,
		Seller:       "seller",
		SaleAsset:    "MCK",
		PaymentAsset: "ETH",
		Ledger:       led,
		Clock:        clk,
		Sink:         sink,
	})

	if err := a.StartAuction(forwardParams()); err != nil {
		t.Fatalf("StartAuction failed: %v", err)
	}
	clk.Advance(600 * time.Second)
	if _, err := a.Buy("buyer", dec("0.0095")); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.events))
	}

	started, ok := sink.events[0].(*event.AuctionStartedEvent)
	if !ok {
		t.Fatalf("first event is %T, expected AuctionStartedEvent", sink.events[0])
	}
	if started.Seller != "seller" || !started.Quantity.Equal(dec("10")) {
		t.Errorf("unexpected start event: %+v", started)
	}

	swap, ok := sink.events[1].(*event.SwapExecutedEvent)
	if !ok {
		t.Fatalf("second event is %T, expected SwapExecutedEvent", sink.events[1])
	}
	if swap.Buyer != "buyer" {
		t.Errorf("swap buyer: expected buyer, got %s", swap.Buyer)
	}
	if !swap.Price.Equal(dec("0.0094")) {
		t.Errorf("swap price: expected 0.0094, got %s", swap.Price)
	}
	if !swap.Refund.Equal(dec("0.0001")) {
		t.Errorf("swap refund: expected 0.0001, got %s", swap.Refund)
	}
}
