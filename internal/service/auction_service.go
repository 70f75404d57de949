package service

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"dutchswap/internal/domain"
	"dutchswap/internal/engine"
	"dutchswap/internal/event"
	"dutchswap/internal/infra"
	"dutchswap/internal/ledger"
)

// AuctionService manages the registry of auction instances and wires each
// one to the shared ledger, clock, persistence and notification fan-out.
// Each instance serializes its own transitions; the service lock only
// guards the registry map.
type AuctionService struct {
	mu       sync.RWMutex
	auctions map[string]*engine.Auction

	ledger  *ledger.Ledger
	clock   domain.Clock
	repo    domain.AuctionRepository // optional
	sink    event.Sink               // optional, e.g. the websocket hub
	metrics *infra.Metrics
}

// NewAuctionService creates a service. repo and sink may be nil.
func NewAuctionService(led *ledger.Ledger, clk domain.Clock, repo domain.AuctionRepository, sink event.Sink) *AuctionService {
	return &AuctionService{
		auctions: make(map[string]*engine.Auction),
		ledger:   led,
		clock:    clk,
		repo:     repo,
		sink:     sink,
		metrics:  infra.GlobalMetrics,
	}
}

// AuctionSpec binds a new instance to its sale asset and roles.
type AuctionSpec struct {
	ID           string
	Variant      domain.Variant
	Seller       string
	SaleAsset    string
	PaymentAsset string
}

// CreateAuction constructs and registers an Uninitialized auction instance.
func (s *AuctionService) CreateAuction(spec AuctionSpec) (*engine.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.auctions[spec.ID]; exists {
		return nil, fmt.Errorf("auction %s is already registered", spec.ID)
	}

	a := engine.New(engine.Config{
		ID:           spec.ID,
		Variant:      spec.Variant,
		Seller:       spec.Seller,
		SaleAsset:    spec.SaleAsset,
		PaymentAsset: spec.PaymentAsset,
		Ledger:       s.ledger,
		Clock:        s.clock,
		Sink:         s,
	})
	s.auctions[spec.ID] = a

	if s.repo != nil {
		if err := s.repo.SaveAuction(domain.NewAuctionRecord(a.Snapshot())); err != nil {
			slog.Error("Failed to persist auction", slog.String("id", spec.ID), slog.Any("error", err))
		}
	}
	return a, nil
}

// Start begins the auction's active period, escrowing the sale quantity.
func (s *AuctionService) Start(id string, params domain.AuctionParams) error {
	a, err := s.get(id)
	if err != nil {
		return err
	}
	if err := a.StartAuction(params); err != nil {
		return err
	}

	s.metrics.RecordAuctionStarted()
	s.persistSnapshot(a)
	return nil
}

// Buy settles the auction for buyer at the price of this instant.
func (s *AuctionService) Buy(id, buyer string, payment decimal.Decimal) (engine.Settlement, error) {
	a, err := s.get(id)
	if err != nil {
		return engine.Settlement{}, err
	}

	settlement, err := a.Buy(buyer, payment)
	if err != nil {
		s.metrics.RecordBuyRejected()
		return engine.Settlement{}, err
	}

	s.metrics.RecordSwapExecuted()
	s.persistSnapshot(a)
	if s.repo != nil {
		rec := &domain.SettlementRecord{
			AuctionID:  id,
			Buyer:      settlement.Buyer,
			Price:      settlement.Price.String(),
			Quantity:   settlement.Quantity.String(),
			Refund:     settlement.Refund.String(),
			ExecutedAt: settlement.ExecutedAt,
		}
		if err := s.repo.RecordSettlement(rec); err != nil {
			slog.Error("Failed to journal settlement", slog.String("id", id), slog.Any("error", err))
		}
	}
	return settlement, nil
}

// Price returns the current price of one auction.
func (s *AuctionService) Price(id string) (decimal.Decimal, error) {
	a, err := s.get(id)
	if err != nil {
		return decimal.Zero, err
	}
	s.metrics.RecordPriceRead()
	return a.CurrentPrice()
}

// Get returns a snapshot of one auction.
func (s *AuctionService) Get(id string) (domain.AuctionSnapshot, error) {
	a, err := s.get(id)
	if err != nil {
		return domain.AuctionSnapshot{}, err
	}
	return a.Snapshot(), nil
}

// List returns snapshots of all registered auctions sorted by ID.
func (s *AuctionService) List() []domain.AuctionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuctionSnapshot, 0, len(s.auctions))
	for _, a := range s.auctions {
		result = append(result, a.Snapshot())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Balances returns the shared ledger's current balances.
func (s *AuctionService) Balances() []domain.Balance {
	return s.ledger.Snapshot()
}

// Publish receives engine events, logs them and forwards them to the
// external sink. Implements event.Sink.
func (s *AuctionService) Publish(ev event.Event) {
	switch e := ev.(type) {
	case *event.AuctionStartedEvent:
		slog.Info("AUCTION_STARTED",
			slog.String("id", e.AuctionID),
			slog.String("seller", e.Seller),
			slog.String("initial_price", e.InitialPrice.String()),
			slog.Int64("duration_sec", e.DurationSec),
			slog.String("rate", e.PriceDecreaseRate.String()),
			slog.String("quantity", e.Quantity.String()))
	case *event.SwapExecutedEvent:
		slog.Info("SWAP_EXECUTED",
			slog.String("id", e.AuctionID),
			slog.String("buyer", e.Buyer),
			slog.String("price", e.Price.String()),
			slog.String("quantity", e.Quantity.String()),
			slog.String("refund", e.Refund.String()))
	}
	if s.sink != nil {
		s.sink.Publish(ev)
	}
}

func (s *AuctionService) get(id string) (*engine.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAuction, id)
	}
	return a, nil
}

func (s *AuctionService) persistSnapshot(a *engine.Auction) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveAuction(domain.NewAuctionRecord(a.Snapshot())); err != nil {
		slog.Error("Failed to persist auction", slog.String("id", a.ID()), slog.Any("error", err))
	}
}
