package event

import "github.com/shopspring/decimal"

// Event types emitted by the auction engine. These are the notification
// surface: the service fans them out to the log, the settlement journal and
// the websocket feed.

const (
	TypeAuctionStarted = "AUCTION_STARTED"
	TypeSwapExecuted   = "SWAP_EXECUTED"
)

// Event is the common interface of all engine notifications.
type Event interface {
	GetType() string
	GetTs() int64
}

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	Ts int64 `json:"ts"` // unix seconds at the emitting transition
}

func (e *BaseEvent) GetTs() int64 { return e.Ts }

// AuctionStartedEvent is emitted once per instance, when StartAuction
// escrows the sale asset and opens the active period.
type AuctionStartedEvent struct {
	BaseEvent
	AuctionID         string          `json:"auction_id"`
	Seller            string          `json:"seller"`
	InitialPrice      decimal.Decimal `json:"initial_price"`
	DurationSec       int64           `json:"duration_sec"`
	PriceDecreaseRate decimal.Decimal `json:"price_decrease_rate"`
	Quantity          decimal.Decimal `json:"quantity"`
}

func (e *AuctionStartedEvent) GetType() string { return TypeAuctionStarted }

// SwapExecutedEvent is emitted exactly once per instance, by the winning
// Buy. Price is the price at the settlement instant; Refund is the excess
// the buyer keeps.
type SwapExecutedEvent struct {
	BaseEvent
	AuctionID string          `json:"auction_id"`
	Buyer     string          `json:"buyer"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Refund    decimal.Decimal `json:"refund"`
}

func (e *SwapExecutedEvent) GetType() string { return TypeSwapExecuted }

// Sink receives engine events. Publish must not block the emitting
// transition; slow consumers drop rather than stall settlement.
type Sink interface {
	Publish(ev Event)
}
