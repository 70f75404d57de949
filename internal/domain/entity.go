package domain

import (
	"time"
)

// AuctionRecord is the persisted form of an auction snapshot. Decimals are
// stored as strings to keep sqlite exact.
type AuctionRecord struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	Variant           string    `json:"variant"`
	State             string    `gorm:"index" json:"state"`
	Seller            string    `json:"seller"`
	SaleAsset         string    `json:"sale_asset"`
	PaymentAsset      string    `json:"payment_asset"`
	InitialPrice      string    `json:"initial_price"`
	DurationSec       int64     `json:"duration_sec"`
	PriceDecreaseRate string    `json:"price_decrease_rate"`
	Quantity          string    `json:"quantity"`
	StartedAt         int64     `json:"started_at"`
	Ended             bool      `gorm:"index" json:"ended"`
	Buyer             string    `json:"buyer"`
	FinalPrice        string    `json:"final_price"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SettlementRecord is the journal entry written for every executed swap.
type SettlementRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AuctionID  string    `gorm:"index" json:"auction_id"`
	Buyer      string    `json:"buyer"`
	Price      string    `json:"price"`
	Quantity   string    `json:"quantity"`
	Refund     string    `json:"refund"`
	ExecutedAt int64     `json:"executed_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewAuctionRecord flattens a snapshot into its persisted form.
func NewAuctionRecord(s AuctionSnapshot) *AuctionRecord {
	return &AuctionRecord{
		ID:                s.ID,
		Variant:           string(s.Variant),
		State:             string(s.State),
		Seller:            s.Seller,
		SaleAsset:         s.SaleAsset,
		PaymentAsset:      s.PaymentAsset,
		InitialPrice:      s.Params.InitialPrice.String(),
		DurationSec:       s.Params.DurationSec,
		PriceDecreaseRate: s.Params.PriceDecreaseRate.String(),
		Quantity:          s.Params.Quantity.String(),
		StartedAt:         s.StartedAt,
		Ended:             s.Ended,
		Buyer:             s.Buyer,
		FinalPrice:        s.FinalPrice.String(),
	}
}
