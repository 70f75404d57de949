package app

import (
	"log/slog"

	"dutchswap/internal/domain"
	"dutchswap/internal/infra"
	"dutchswap/internal/infra/feed"
	"dutchswap/internal/infra/storage"
	"dutchswap/internal/ledger"
	"dutchswap/internal/service"
	"dutchswap/pkg/clock"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Ledger  *ledger.Ledger
	Hub     *feed.Hub
	Service *service.AuctionService
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logger, storage,
// ledger seeding and auction registration.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Dutch Swap...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Seed Ledger (pre-minted supplies, mirrors the original token deploy)
	b.Ledger = ledger.New()
	for _, acc := range cfg.Ledger.Accounts {
		b.Ledger.Seed(acc.Asset, acc.Account, acc.BalanceDecimal())
	}
	slog.Info("✅ Ledger seeded", slog.Int("accounts", len(cfg.Ledger.Accounts)))

	// 5. Event Hub + Service
	b.Hub = feed.NewHub()
	b.Service = service.NewAuctionService(b.Ledger, clock.NewSystem(), b.Storage, b.Hub)

	// 6. Register configured auctions (Uninitialized until the seller starts them)
	for _, a := range cfg.Auctions {
		if _, err := b.Service.CreateAuction(service.AuctionSpec{
			ID:           a.ID,
			Variant:      domain.Variant(a.Variant),
			Seller:       a.Seller,
			SaleAsset:    a.SaleAsset,
			PaymentAsset: a.PaymentAsset,
		}); err != nil {
			return err
		}
	}
	slog.Info("✅ Auctions registered", slog.Int("count", len(cfg.Auctions)))

	return nil
}
