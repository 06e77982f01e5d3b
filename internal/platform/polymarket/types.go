package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string. Gamma
// sends volume and liquidity as strings on some endpoints.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Outcomes, outcome prices, and token IDs arrive as JSON-encoded strings
// inside the JSON document and are decoded by ToSnapshot.
type APIMarket struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	Slug             string    `json:"slug"`
	Active           flexBool  `json:"active"` // API may send bool or "true"/"false" string
	Closed           bool      `json:"closed"`
	Outcomes         string    `json:"outcomes"`      // e.g. "[\"Yes\",\"No\"]"
	OutcomePrices    string    `json:"outcomePrices"` // e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs     string    `json:"clobTokenIds"`  // e.g. "[\"123\",\"456\"]"
	Volume           flexFloat `json:"volume"`
	Volume24h        flexFloat `json:"volume24hr"`
	Liquidity        flexFloat `json:"liquidity"`
	EndDateISO       string    `json:"endDate"`
	ResolutionSource string    `json:"resolutionSource"`
	ResolvedBy       string    `json:"resolvedBy"`
	ClosedTime       string    `json:"closedTime"`
	CreatedAt        string    `json:"createdAt"`
	UpdatedAt        string    `json:"updatedAt"`
}

// ToSnapshot converts a Gamma APIMarket to a domain.MarketSnapshot,
// decoding the stringified list fields once at this boundary.
func (m *APIMarket) ToSnapshot() domain.MarketSnapshot {
	snap := domain.MarketSnapshot{
		ID:               m.ID,
		Platform:         domain.PlatformPolymarket,
		Question:         m.Question,
		Slug:             m.Slug,
		Outcomes:         decodeStringList(m.Outcomes),
		TokenIDs:         decodeStringList(m.ClobTokenIDs),
		Volume:           float64(m.Volume),
		Volume24h:        float64(m.Volume24h),
		Liquidity:        float64(m.Liquidity),
		Active:           bool(m.Active) && !m.Closed,
		ResolutionSource: m.ResolutionSource,
		ResolvedOutcome:  m.ResolvedBy,
		Resolved:         m.ResolutionSource != "",
	}
	if snap.Question == "" {
		snap.Question = "Unknown"
	}

	for _, p := range decodeStringList(m.OutcomePrices) {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			v = 0
		}
		snap.Prices = append(snap.Prices, v)
	}

	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		snap.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		snap.UpdatedAt = t
	}
	if m.EndDateISO != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
			snap.CloseTime = &t
		}
	}
	if m.ClosedTime != "" {
		if t, err := parseFlexTime(m.ClosedTime); err == nil {
			snap.ResolvedAt = &t
		}
	}

	return snap
}

// decodeStringList parses a JSON-encoded string list like
// "[\"Yes\",\"No\"]". Malformed input yields nil rather than an error;
// the caller treats the field as absent.
func decodeStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// parseFlexTime accepts the handful of timestamp layouts Gamma uses.
func parseFlexTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05-07", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// APITrade represents one fill from the Data API /trades endpoint.
type APITrade struct {
	ID              string    `json:"id"`
	ProxyWallet     string    `json:"proxyWallet"`
	Side            string    `json:"side"`
	Asset           string    `json:"asset"`
	ConditionID     string    `json:"conditionId"`
	Size            flexFloat `json:"size"`
	Price           flexFloat `json:"price"`
	Timestamp       int64     `json:"timestamp"`
	Title           string    `json:"title"`
	Outcome         string    `json:"outcome"`
	TransactionHash string    `json:"transactionHash"`
}

// ToTrade converts a Data API trade to a domain.Trade. Trades without
// an upstream ID get a deterministic txhash_timestamp fallback so the
// monitor can deduplicate them across polls.
func (t *APITrade) ToTrade(tokenID string) domain.Trade {
	trade := domain.Trade{
		ID:        t.ID,
		Platform:  domain.PlatformPolymarket,
		TokenID:   tokenID,
		Outcome:   t.Outcome,
		Side:      strings.ToLower(t.Side),
		Price:     float64(t.Price),
		Size:      float64(t.Size),
		Maker:     t.ProxyWallet,
		TxHash:    t.TransactionHash,
		Timestamp: time.Unix(t.Timestamp, 0).UTC(),
	}
	if trade.ID == "" {
		trade.ID = fmt.Sprintf("%s_%d", t.TransactionHash, t.Timestamp)
	}
	if trade.TokenID == "" {
		trade.TokenID = t.Asset
	}
	return trade
}
