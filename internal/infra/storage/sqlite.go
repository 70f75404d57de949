package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dutchswap/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists auction snapshots and the settlement journal in SQLite.
// The in-memory engine stays authoritative; this is the durable record of
// what happened.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a SQLite storage instance at path.
func NewStorage(path string) (*Storage, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go SQLite
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.AuctionRecord{}, &domain.SettlementRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// ======================================================================================
// Auction Operations
// ======================================================================================

// SaveAuction creates or updates an auction snapshot.
func (s *Storage) SaveAuction(rec *domain.AuctionRecord) error {
	return s.db.Save(rec).Error
}

// GetAuction retrieves an auction record by ID.
func (s *Storage) GetAuction(id string) (*domain.AuctionRecord, error) {
	var rec domain.AuctionRecord
	err := s.db.First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &rec, err
}

// GetAllAuctions retrieves all auction records.
func (s *Storage) GetAllAuctions() ([]domain.AuctionRecord, error) {
	var recs []domain.AuctionRecord
	err := s.db.Order("id").Find(&recs).Error
	return recs, err
}

// GetOpenAuctions retrieves auctions whose ended latch is not set.
func (s *Storage) GetOpenAuctions() ([]domain.AuctionRecord, error) {
	var recs []domain.AuctionRecord
	err := s.db.Where("ended = ?", false).Order("id").Find(&recs).Error
	return recs, err
}

// ======================================================================================
// Settlement Journal
// ======================================================================================

// RecordSettlement appends a settlement journal entry.
func (s *Storage) RecordSettlement(rec *domain.SettlementRecord) error {
	return s.db.Create(rec).Error
}

// GetSettlements retrieves the journal entries for one auction.
func (s *Storage) GetSettlements(auctionID string) ([]domain.SettlementRecord, error) {
	var recs []domain.SettlementRecord
	err := s.db.Where("auction_id = ?", auctionID).Order("id").Find(&recs).Error
	return recs, err
}
