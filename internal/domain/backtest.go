package domain

import "time"

// SignalPoint marks the moment within a market's trade history where
// the aggregated suspicion signal peaked.
type SignalPoint struct {
	Timestamp   time.Time
	Probability float64
	TradeIndex  int // number of trades in the maximizing prefix
}

// BacktestResult records how a suspicion signal played out for one
// resolved or in-flight market. PredictedCorrectly stays nil until the
// market resolves.
type BacktestResult struct {
	ID                    string
	MarketID              string
	Platform              Platform
	Question              string
	SignalTime            time.Time
	SignalProbability     float64
	Indicators            map[string]IndicatorScore
	TradesBefore          int
	TradesAfter           int
	PreSignalPrice        float64
	PostSignalPrice       float64
	PriceMove             float64
	PriceMovePct          float64
	PredictedOutcome      string
	MarketResolved        bool
	ActualOutcome         string
	PredictedCorrectly    *bool
	TimeToResolutionHours float64
	ComputedAt            time.Time
}

// IndicatorEffectiveness compares an indicator's mean score across
// correct and incorrect outcome predictions. Delta is zero unless both
// sides have samples.
type IndicatorEffectiveness struct {
	Indicator      string
	MeanCorrect    float64
	MeanIncorrect  float64
	CorrectCount   int
	IncorrectCount int
	Delta          float64
}
