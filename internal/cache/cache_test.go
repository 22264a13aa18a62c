package cache

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StatArbTrader/pairs-bot/internal/models"
)

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(time.Minute)

	trade := &models.Trade{
		Symbol:    "KO",
		Price:     decimal.NewFromFloat(61.25),
		Size:      100,
		Timestamp: time.Now(),
	}
	c.SetTrade(trade)

	got, found := c.GetTrade("KO")
	if !found {
		t.Fatal("Expected cached trade for KO")
	}
	if !got.Price.Equal(trade.Price) {
		t.Errorf("Expected price %s, got %s", trade.Price, got.Price)
	}

	price, found := c.LatestPrice("KO")
	if !found || !price.Equal(trade.Price) {
		t.Errorf("LatestPrice() = %s, %v; want %s, true", price, found, trade.Price)
	}
}

func TestCacheMissingSymbol(t *testing.T) {
	c := NewCache(time.Minute)

	if _, found := c.GetTrade("PEP"); found {
		t.Error("Expected no trade for uncached symbol")
	}
	if _, found := c.LatestPrice("PEP"); found {
		t.Error("Expected no price for uncached symbol")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10 * time.Millisecond)

	c.SetTrade(&models.Trade{Symbol: "KO", Price: decimal.NewFromFloat(61.25)})
	time.Sleep(30 * time.Millisecond)

	if _, found := c.LatestPrice("KO"); found {
		t.Error("Expected stale trade to have expired")
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache(time.Minute)
	c.SetTrade(&models.Trade{Symbol: "KO", Price: decimal.NewFromFloat(61.25)})
	c.SetTrade(&models.Trade{Symbol: "PEP", Price: decimal.NewFromFloat(205.10)})

	if c.ItemCount() != 2 {
		t.Fatalf("Expected 2 cached trades, got %d", c.ItemCount())
	}

	c.Clear()
	if c.ItemCount() != 0 {
		t.Errorf("Expected empty cache after Clear(), got %d", c.ItemCount())
	}
}
