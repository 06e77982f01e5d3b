package domain

import "time"

// Trade is a single normalized fill on a prediction market. Platform
// clients map their upstream payloads into this shape once; everything
// downstream (scoring, backtesting, persistence) works only with it.
type Trade struct {
	ID        string // upstream trade ID, or txhash_timestamp when absent
	MarketID  string
	Platform  Platform
	TokenID   string
	Outcome   string
	Side      string // "buy" or "sell" where the platform reports it
	Price     float64
	Size      float64
	Maker     string
	Taker     string
	TxHash    string
	Timestamp time.Time
}

// Value returns the notional size of the trade in quote currency.
func (t Trade) Value() float64 {
	return t.Price * t.Size
}

// Address returns the account behind the trade, preferring the maker.
func (t Trade) Address() string {
	if t.Maker != "" {
		return t.Maker
	}
	return t.Taker
}

// Trade flags assigned by the live monitor.
const (
	FlagFreshInsider      = "FRESH_INSIDER"
	FlagContrarianInsider = "CONTRARIAN_INSIDER"
)

// FlaggedTrade is a large trade annotated by the live monitor with the
// account's history depth and an optional suspicion flag.
type FlaggedTrade struct {
	Trade
	Question      string
	AccountTrades int    // total historical trades by the account, -1 if unknown
	Flag          string // one of the Flag* constants, or empty
}
