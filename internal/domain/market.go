package domain

import "time"

// Platform identifies the prediction-market venue a record came from.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
	PlatformManifold   Platform = "manifold"
)

// MarketSnapshot is a point-in-time view of a prediction market,
// normalized across platforms. Outcomes and Prices are parallel slices.
type MarketSnapshot struct {
	ID               string
	Platform         Platform
	Question         string
	Slug             string
	Outcomes         []string
	Prices           []float64
	TokenIDs         []string
	Volume           float64
	Volume24h        float64
	Liquidity        float64
	UniqueBettors    int
	Active           bool
	CloseTime        *time.Time
	Resolved         bool
	ResolvedOutcome  string
	ResolutionSource string
	ResolvedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TopOutcome returns the outcome with the highest price and that price.
// Returns empty name and zero when the snapshot carries no prices.
func (m MarketSnapshot) TopOutcome() (string, float64) {
	if len(m.Prices) == 0 {
		return "", 0
	}
	best := 0
	for i, p := range m.Prices {
		if p > m.Prices[best] {
			best = i
		}
	}
	name := ""
	if best < len(m.Outcomes) {
		name = m.Outcomes[best]
	}
	return name, m.Prices[best]
}
