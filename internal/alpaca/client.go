package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/StatArbTrader/pairs-bot/internal/config"
	"github.com/StatArbTrader/pairs-bot/internal/models"
	"github.com/StatArbTrader/pairs-bot/internal/stats"
)

// Client is a thin wrapper around the Alpaca REST API
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	baseURL    string
	dataURL    string
}

// NewClient creates a new Alpaca client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		baseURL: cfg.AlpacaBaseURL,
		dataURL: cfg.AlpacaDataURL,
	}
}

// doRequest performs an HTTP request with auth headers
func (c *Client) doRequest(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("APCA-API-KEY-ID", c.cfg.AlpacaKeyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.cfg.AlpacaSecretKey)
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

// parseResponse reads and unmarshals the response
func parseResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

// GetAccount retrieves account information
func (c *Client) GetAccount(ctx context.Context) (*models.Account, error) {
	resp, err := c.doRequest(ctx, "GET", c.baseURL+"/v2/account", nil)
	if err != nil {
		return nil, err
	}

	var account models.Account
	if err := parseResponse(resp, &account); err != nil {
		return nil, err
	}

	return &account, nil
}

// PlaceOrder submits a new order
func (c *Client) PlaceOrder(ctx context.Context, order *models.OrderRequest) (*models.Order, error) {
	resp, err := c.doRequest(ctx, "POST", c.baseURL+"/v2/orders", order)
	if err != nil {
		return nil, err
	}

	var newOrder models.Order
	if err := parseResponse(resp, &newOrder); err != nil {
		return nil, err
	}

	return &newOrder, nil
}

// GetPositions retrieves all open positions
func (c *Client) GetPositions(ctx context.Context) ([]*models.Position, error) {
	resp, err := c.doRequest(ctx, "GET", c.baseURL+"/v2/positions", nil)
	if err != nil {
		return nil, err
	}

	var positions []*models.Position
	if err := parseResponse(resp, &positions); err != nil {
		return nil, err
	}

	return positions, nil
}

// GetPosition retrieves the open position for one symbol. Alpaca answers 404
// when there is none; that is a normal flat book, not an error, so it maps
// to found=false.
func (c *Client) GetPosition(ctx context.Context, symbol string) (*models.Position, bool, error) {
	url := fmt.Sprintf("%s/v2/positions/%s", c.baseURL, url.PathEscape(symbol))
	resp, err := c.doRequest(ctx, "GET", url, nil)
	if err != nil {
		return nil, false, err
	}

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, false, nil
	}

	var position models.Position
	if err := parseResponse(resp, &position); err != nil {
		return nil, false, err
	}

	return &position, true, nil
}

// GetBars retrieves historical bars for one symbol, following the pagination
// token until the range is exhausted.
func (c *Client) GetBars(ctx context.Context, symbol string, timeframe string, start, end time.Time) ([]*models.Bar, error) {
	var bars []*models.Bar
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("symbols", symbol)
		params.Set("timeframe", timeframe)
		params.Set("adjustment", "split")
		if !start.IsZero() {
			params.Set("start", start.Format(time.RFC3339))
		}
		if !end.IsZero() {
			params.Set("end", end.Format(time.RFC3339))
		}
		if pageToken != "" {
			params.Set("page_token", pageToken)
		}

		url := fmt.Sprintf("%s/v2/stocks/bars?%s", c.dataURL, params.Encode())
		resp, err := c.doRequest(ctx, "GET", url, nil)
		if err != nil {
			return nil, err
		}

		var result struct {
			Bars          map[string][]*models.Bar `json:"bars"`
			NextPageToken *string                  `json:"next_page_token"`
		}
		if err := parseResponse(resp, &result); err != nil {
			return nil, err
		}

		bars = append(bars, result.Bars[symbol]...)
		if result.NextPageToken == nil || *result.NextPageToken == "" {
			return bars, nil
		}
		pageToken = *result.NextPageToken
	}
}

// GetDailyCloses fetches the trailing window of daily bars for a symbol and
// returns the closing prices as a series ready for spread math.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, lookbackDays int) (stats.PriceSeries, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	bars, err := c.GetBars(ctx, symbol, "1Day", start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars for %s: %w", symbol, err)
	}

	series := make(stats.PriceSeries, 0, len(bars))
	for _, bar := range bars {
		price, _ := bar.Close.Float64()
		series = append(series, stats.PricePoint{
			Timestamp: bar.Timestamp.UTC().Truncate(24 * time.Hour),
			Price:     price,
		})
	}
	return series, nil
}

// GetLatestTrade retrieves the most recent trade for a symbol
func (c *Client) GetLatestTrade(ctx context.Context, symbol string) (*models.Trade, error) {
	url := fmt.Sprintf("%s/v2/stocks/%s/trades/latest", c.dataURL, url.PathEscape(symbol))
	resp, err := c.doRequest(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Symbol string        `json:"symbol"`
		Trade  *models.Trade `json:"trade"`
	}
	if err := parseResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Trade == nil {
		return nil, fmt.Errorf("no trade data for %s", symbol)
	}
	result.Trade.Symbol = result.Symbol

	return result.Trade, nil
}
