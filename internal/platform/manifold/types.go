package manifold

import (
	"time"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// APIMarket represents a market (LiteMarket) from the Manifold API.
type APIMarket struct {
	ID            string  `json:"id"`
	Question      string  `json:"question"`
	Slug          string  `json:"slug"`
	OutcomeType   string  `json:"outcomeType"` // "BINARY", "MULTIPLE_CHOICE", ...
	Probability   float64 `json:"probability"`
	Volume        float64 `json:"volume"`
	Volume24Hours float64 `json:"volume24Hours"`
	UniqueBettors int     `json:"uniqueBettorCount"`
	TotalLiq      float64 `json:"totalLiquidity"`
	CloseTime     int64   `json:"closeTime"` // epoch millis
	IsResolved    bool    `json:"isResolved"`
	Resolution    string  `json:"resolution"` // "YES", "NO", "MKT", "CANCEL"
	ResolutionTs  int64   `json:"resolutionTime"`
}

// Closed reports whether the market's close time has passed.
func (m *APIMarket) Closed() bool {
	return m.CloseTime > 0 && time.UnixMilli(m.CloseTime).Before(time.Now())
}

// ToSnapshot converts an APIMarket to a normalized snapshot.
func (m *APIMarket) ToSnapshot() domain.MarketSnapshot {
	snap := domain.MarketSnapshot{
		ID:            m.ID,
		Platform:      domain.PlatformManifold,
		Question:      m.Question,
		Slug:          m.Slug,
		Outcomes:      []string{"Yes", "No"},
		Prices:        []float64{m.Probability, 1 - m.Probability},
		Volume:        m.Volume,
		Volume24h:     m.Volume24Hours,
		Liquidity:     m.TotalLiq,
		UniqueBettors: m.UniqueBettors,
		Active:        !m.IsResolved && !m.Closed(),
	}

	if m.IsResolved {
		snap.Resolved = true
		snap.ResolutionSource = "manifold"
		switch m.Resolution {
		case "YES":
			snap.ResolvedOutcome = "Yes"
		case "NO":
			snap.ResolvedOutcome = "No"
		default:
			snap.ResolvedOutcome = m.Resolution
		}
		if m.ResolutionTs > 0 {
			t := time.UnixMilli(m.ResolutionTs).UTC()
			snap.ResolvedAt = &t
		}
	}

	if m.CloseTime > 0 {
		t := time.UnixMilli(m.CloseTime).UTC()
		snap.CloseTime = &t
	}

	return snap
}
