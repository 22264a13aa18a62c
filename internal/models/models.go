package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide represents buy or sell
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// OrderType represents the order type
type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// TimeInForce represents order duration
type TimeInForce string

const (
	Day TimeInForce = "day"
	GTC TimeInForce = "gtc"
)

// OrderStatus represents the current status of an order
type OrderStatus string

const (
	OrderNew             OrderStatus = "new"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCanceled        OrderStatus = "canceled"
	OrderExpired         OrderStatus = "expired"
	OrderPending         OrderStatus = "pending_new"
	OrderAccepted        OrderStatus = "accepted"
	OrderRejected        OrderStatus = "rejected"
)

// Order represents a trading order
type Order struct {
	ID             string           `json:"id"`
	ClientOrderID  string           `json:"client_order_id"`
	CreatedAt      time.Time        `json:"created_at"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	FilledAt       *time.Time       `json:"filled_at"`
	Symbol         string           `json:"symbol"`
	Qty            decimal.Decimal  `json:"qty"`
	FilledQty      decimal.Decimal  `json:"filled_qty"`
	FilledAvgPrice *decimal.Decimal `json:"filled_avg_price"`
	Type           OrderType        `json:"type"`
	Side           OrderSide        `json:"side"`
	TimeInForce    TimeInForce      `json:"time_in_force"`
	Status         OrderStatus      `json:"status"`
}

// OrderRequest represents a request to create a new order
type OrderRequest struct {
	Symbol        string           `json:"symbol"`
	Qty           *decimal.Decimal `json:"qty,omitempty"`
	Side          OrderSide        `json:"side"`
	Type          OrderType        `json:"type"`
	TimeInForce   TimeInForce      `json:"time_in_force"`
	ClientOrderID string           `json:"client_order_id,omitempty"`
}

// Position represents a broker-reported open position. Reconciliation treats
// it as ground truth; the engine never stores derived fields on it.
type Position struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	Side          string          `json:"side"`
	MarketValue   decimal.Decimal `json:"market_value"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	UnrealizedPL  decimal.Decimal `json:"unrealized_pl"`
}

// Account represents account information
type Account struct {
	ID               string          `json:"id"`
	AccountNumber    string          `json:"account_number"`
	Status           string          `json:"status"`
	Currency         string          `json:"currency"`
	BuyingPower      decimal.Decimal `json:"buying_power"`
	Cash             decimal.Decimal `json:"cash"`
	PortfolioValue   decimal.Decimal `json:"portfolio_value"`
	Equity           decimal.Decimal `json:"equity"`
	LastEquity       decimal.Decimal `json:"last_equity"`
	TradingBlocked   bool            `json:"trading_blocked"`
	AccountBlocked   bool            `json:"account_blocked"`
	PatternDayTrader bool            `json:"pattern_day_trader"`
}

// Trade represents a market trade from the data stream
type Trade struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"p"`
	Size      int32           `json:"s"`
	Timestamp time.Time       `json:"t"`
}

// Bar represents an OHLCV bar
type Bar struct {
	Symbol    string          `json:"symbol"`
	Open      decimal.Decimal `json:"o"`
	High      decimal.Decimal `json:"h"`
	Low       decimal.Decimal `json:"l"`
	Close     decimal.Decimal `json:"c"`
	Volume    int64           `json:"v"`
	Timestamp time.Time       `json:"t"`
}
