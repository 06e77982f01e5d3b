package domain

import "time"

// Indicator names used as keys in analyses, weights, and reports.
const (
	IndicatorConcentration = "trade_concentration"
	IndicatorVelocity      = "trade_velocity"
	IndicatorOutcomeSkew   = "outcome_skew"
	IndicatorPriceMovement = "price_movement"
	IndicatorWhale         = "whale_accumulation"
)

// IndicatorScore is the result of one suspicion indicator: a score on
// the 0-10 scale plus the intermediate values behind it.
type IndicatorScore struct {
	Score   float64
	Details map[string]float64
}

// WhalePosition summarizes one account's activity within a market.
type WhalePosition struct {
	Address           string
	Position          float64 // total shares accumulated
	TradeCount        int
	FirstTrade        time.Time
	LastTrade         time.Time
	AccumulationSpeed float64 // shares per hour
}

// InsiderAnalysis is the full suspicion assessment for one market.
type InsiderAnalysis struct {
	ID                 string
	MarketID           string
	Platform           Platform
	Question           string
	Indicators         map[string]IndicatorScore
	InsiderProbability float64 // [0,1]
	RiskScore          float64 // mean of concentration, velocity, skew
	Whales             []WhalePosition
	OutcomeVolumes     map[string]float64
	TradeCount         int
	TotalVolume        float64
	ComputedAt         time.Time
}

// Score returns the named indicator's score, or zero when missing.
func (a InsiderAnalysis) Score(indicator string) float64 {
	return a.Indicators[indicator].Score
}

// QuickScan is a snapshot-only skew assessment. It needs no trade
// history, so it can cover hundreds of markets in one pass.
type QuickScan struct {
	MarketID   string    `json:"market_id"`
	Platform   Platform  `json:"platform"`
	Question   string    `json:"question"`
	TopOutcome string    `json:"top_outcome"`
	TopPrice   float64   `json:"top_price"`
	SkewScore  float64   `json:"skew_score"`
	Severity   string    `json:"severity"` // "balanced", "moderate", "high", "extreme"
	Volume     float64   `json:"volume"`
	ScannedAt  time.Time `json:"scanned_at"`
}
