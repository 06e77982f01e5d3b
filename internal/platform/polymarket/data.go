package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// DataClient is the REST client for the Polymarket Data API, which
// serves trade history and per-user activity.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a new Data API client.
//
// baseURL is the Data API root, e.g. "https://data-api.polymarket.com".
func NewDataClient(baseURL string) *DataClient {
	return &DataClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetTrades returns recent trades for a CLOB token, newest first as
// the API delivers them.
func (d *DataClient) GetTrades(ctx context.Context, tokenID string, limit int) ([]domain.Trade, error) {
	params := url.Values{}
	params.Set("market", tokenID)
	params.Set("limit", strconv.Itoa(limit))

	body, err := d.doGet(ctx, "/trades?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get trades: %w", err)
	}

	var apiTrades []APITrade
	if err := json.Unmarshal(body, &apiTrades); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode trades: %w", err)
	}

	trades := make([]domain.Trade, 0, len(apiTrades))
	for i := range apiTrades {
		trades = append(trades, apiTrades[i].ToTrade(tokenID))
	}
	return trades, nil
}

// MarketTrades fetches and merges trades across every token of a
// market, so binary markets carry both sides of the book.
func (d *DataClient) MarketTrades(ctx context.Context, market domain.MarketSnapshot, limitPerToken int) ([]domain.Trade, error) {
	var all []domain.Trade
	for _, tokenID := range market.TokenIDs {
		if tokenID == "" {
			continue
		}
		trades, err := d.GetTrades(ctx, tokenID, limitPerToken)
		if err != nil {
			return nil, err
		}
		for i := range trades {
			trades[i].MarketID = market.ID
		}
		all = append(all, trades...)
	}
	return all, nil
}

// UserTradeCount returns how many activity records a wallet has, up to
// the probe limit. The monitor uses this to spot fresh accounts, so an
// exact count beyond the limit is not needed.
func (d *DataClient) UserTradeCount(ctx context.Context, address string, probeLimit int) (int, error) {
	params := url.Values{}
	params.Set("user", address)
	params.Set("limit", strconv.Itoa(probeLimit))

	body, err := d.doGet(ctx, "/activity?"+params.Encode())
	if err != nil {
		return 0, fmt.Errorf("polymarket/data: get user activity: %w", err)
	}

	var activity []json.RawMessage
	if err := json.Unmarshal(body, &activity); err != nil {
		return 0, fmt.Errorf("polymarket/data: decode activity: %w", err)
	}
	return len(activity), nil
}

// doGet sends an unauthenticated GET request to the Data API.
func (d *DataClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
