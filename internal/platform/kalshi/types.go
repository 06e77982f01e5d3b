package kalshi

import (
	"time"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// KalshiMarket represents a market as returned by the Kalshi REST API.
// Prices are quoted in cents (1-99).
type KalshiMarket struct {
	Ticker          string  `json:"ticker"`
	EventTicker     string  `json:"event_ticker"`
	Title           string  `json:"title"`
	Subtitle        string  `json:"subtitle"`
	Status          string  `json:"status"` // "open", "closed", "settled"
	YesBid          float64 `json:"yes_bid"`
	YesAsk          float64 `json:"yes_ask"`
	NoBid           float64 `json:"no_bid"`
	NoAsk           float64 `json:"no_ask"`
	LastPrice       float64 `json:"last_price"`
	Volume          int64   `json:"volume"`
	Volume24H       int64   `json:"volume_24h"`
	OpenInterest    int64   `json:"open_interest"`
	ExpirationTime  string  `json:"expiration_time"`
	Category        string  `json:"category"`
	Result          string  `json:"result"` // "yes", "no", "" (unsettled)
	CanCloseEarly   bool    `json:"can_close_early"`
	OpenTime        string  `json:"open_time"`
	CloseTime       string  `json:"close_time"`
	SettlementTimer int64   `json:"settlement_timer_seconds"`
}

// KalshiErrorResponse represents a Kalshi API error response.
type KalshiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

// ToSnapshot converts a KalshiMarket to a normalized snapshot. Cent
// prices become probabilities; the yes side uses the bid/ask midpoint
// when both are quoted, falling back to the last trade.
func (m *KalshiMarket) ToSnapshot() domain.MarketSnapshot {
	yes := m.LastPrice / 100
	if m.YesBid > 0 && m.YesAsk > 0 {
		yes = (m.YesBid + m.YesAsk) / 2 / 100
	}
	if yes < 0 {
		yes = 0
	}
	if yes > 1 {
		yes = 1
	}

	snap := domain.MarketSnapshot{
		ID:        m.Ticker,
		Platform:  domain.PlatformKalshi,
		Question:  m.Title,
		Slug:      m.EventTicker,
		Outcomes:  []string{"Yes", "No"},
		Prices:    []float64{yes, 1 - yes},
		Volume:    float64(m.Volume),
		Volume24h: float64(m.Volume24H),
		Active:    m.Status == "open",
	}

	if m.Result != "" {
		snap.Resolved = true
		snap.ResolutionSource = "kalshi"
		if m.Result == "yes" {
			snap.ResolvedOutcome = "Yes"
		} else {
			snap.ResolvedOutcome = "No"
		}
	}

	if m.CloseTime != "" {
		if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
			snap.CloseTime = &t
		}
	}

	return snap
}
