package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/StatArbTrader/pairs-bot/internal/models"
)

// Cache holds the latest streamed trade per symbol. The engine prefers these
// prices when sizing orders; entries expire after the staleness window so a
// dead stream falls back to REST lookups instead of trading on old prints.
type Cache struct {
	trades *gocache.Cache
	ttl    time.Duration
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		trades: gocache.New(ttl, ttl*2),
		ttl:    ttl,
	}
}

// SetTrade records the latest trade for a symbol
func (c *Cache) SetTrade(trade *models.Trade) {
	c.trades.Set(trade.Symbol, trade, c.ttl)
}

// GetTrade retrieves the cached latest trade for a symbol
func (c *Cache) GetTrade(symbol string) (*models.Trade, bool) {
	if val, found := c.trades.Get(symbol); found {
		if trade, ok := val.(*models.Trade); ok {
			return trade, true
		}
	}
	return nil, false
}

// LatestPrice returns the most recent fresh trade price for a symbol.
func (c *Cache) LatestPrice(symbol string) (decimal.Decimal, bool) {
	trade, found := c.GetTrade(symbol)
	if !found {
		return decimal.Zero, false
	}
	return trade.Price, true
}

// Clear removes all cached data
func (c *Cache) Clear() {
	c.trades.Flush()
}

// ItemCount returns the number of symbols with a cached trade.
func (c *Cache) ItemCount() int {
	return c.trades.ItemCount()
}
